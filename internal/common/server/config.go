package server

import (
	"net/http"
	"time"

	"github.com/AlibekovAA/examination-system/internal/common/config"
	"github.com/AlibekovAA/examination-system/internal/common/constants"
)

// responseFlushMargin is the time a handler cut off by the request timeout
// still has to write its error envelope.
const responseFlushMargin = 5 * time.Second

type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// ConfigFromApp derives listener settings from the loaded app config. The
// write timeout always outlasts the per-request handler timeout.
func ConfigFromApp(cfg config.Config) ServerConfig {
	writeTimeout := cfg.RequestTimeout + responseFlushMargin
	if writeTimeout < constants.ServerWriteTimeout {
		writeTimeout = constants.ServerWriteTimeout
	}

	port := cfg.HTTPPort
	if port == "" {
		port = constants.DefaultHTTPPort
	}

	return ServerConfig{
		Addr:              ":" + port,
		ReadHeaderTimeout: constants.ServerReadHeaderTimeout,
		ReadTimeout:       constants.ServerReadTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       constants.ServerIdleTimeout,
	}
}

func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
