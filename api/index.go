package handler

import (
	"net/http"

	"github.com/arnavshah/compliance-api-go/pkg/app"
	"github.com/arnavshah/compliance-api-go/pkg/config"
	"github.com/arnavshah/compliance-api-go/pkg/handlers"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var r *gin.Engine

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	gin.SetMode(gin.ReleaseMode)
	h, _, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	r = handlers.NewRouter(h)
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
