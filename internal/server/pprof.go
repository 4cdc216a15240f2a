package server

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StartPprofServer serves the profiling endpoints on their own listener,
// kept off the public port.
func StartPprofServer(addr string, logger *zap.Logger) {
	r := gin.New()
	pprof.Register(r)

	go func() {
		logger.Info("Starting pprof listener", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Error("Pprof listener stopped", zap.Error(err))
		}
	}()
}
