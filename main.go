package main

import (
	"fmt"

	"github.com/votranphi/heartistry-user-api/internal/config"
	"github.com/votranphi/heartistry-user-api/internal/database"
	"github.com/votranphi/heartistry-user-api/internal/logger"
	"github.com/votranphi/heartistry-user-api/internal/mail"
	"github.com/votranphi/heartistry-user-api/internal/router"

	"github.com/rs/zerolog/log"
)

func main() {
	// load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger.Init(cfg.Log.Level)

	// init database
	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("init database")
	}

	// run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	mailer := mail.NewSMTPSender(cfg.Mail)

	// setup router
	r := router.Setup(cfg, db, mailer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("server listening")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("run server")
	}
}
