package main

import (
	"go.uber.org/zap"

	"github.com/fitlife/fitlife/config"
	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/routes"
	"github.com/fitlife/fitlife/storage"
	"github.com/fitlife/fitlife/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(models.All()...)
	store := storage.NewLocalStore(cfg.StorageRoot, cfg.StoragePublicBase, utils.Logger)

	r := routes.SetupRouter(db, store)

	utils.Logger.Info("starting server", zap.String("port", cfg.AppPort), zap.String("db_driver", cfg.DBDriver))
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Logger.Fatal("server stopped with error", zap.Error(err))
	}
}
