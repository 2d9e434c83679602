package main

import (
	"errors"
	"net/http"
	"os"

	"termomaz/backup"
	"termomaz/config"
	"termomaz/httputil"
	"termomaz/middleware"

	"go.uber.org/zap"
)

// configRequest is the body of POST /api/config. AdminPassword is plain text and is
// stored only as a bcrypt hash.
type configRequest struct {
	config.Config
	AdminPassword string `json:"adminPassword,omitempty"`
}

// GetConfigHandler returns the current settings without the password hash.
func GetConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := config.Get()
		cfg.Auth.AdminPasswordHash = ""
		httputil.WriteJSON(w, http.StatusOK, cfg)
	}
}

// restartSettings are read once at startup. Everything else (admin credentials, payment
// tolerance, rate limit, backup folder and retention, CSV encoding, invoice data, browser
// path) is read from the current config on each use.
var restartSettings = []string{"server.addr", "database", "log.env", "backup.schedule"}

// SaveConfigHandler validates and persists the settings. The response lists the settings
// that take effect on the next start.
func SaveConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req configRequest
		if !httputil.DecodeJSON(w, r, &req) {
			return
		}
		newCfg := req.Config

		if err := validateFolderPath(newCfg.Backup.Dir); err != nil {
			httputil.WriteMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := backup.ValidateSchedule(newCfg.Backup.Schedule); err != nil {
			httputil.WriteMessage(w, http.StatusBadRequest, err.Error())
			return
		}

		switch {
		case req.AdminPassword != "":
			hash, err := middleware.HashPassword(req.AdminPassword)
			if err != nil {
				httputil.WriteError(w, r, err)
				return
			}
			newCfg.Auth.AdminPasswordHash = hash
		case newCfg.Auth.AdminUser != "":
			newCfg.Auth.AdminPasswordHash = config.Get().Auth.AdminPasswordHash
		}

		if err := config.Save(newCfg); err != nil {
			zap.L().Error("failed to save config", zap.Error(err))
			httputil.WriteMessage(w, http.StatusBadRequest, "No se pudo guardar la configuración: "+err.Error())
			return
		}
		zap.L().Info("config saved")
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"message":         "Configuración guardada. Los cambios de dirección, base de datos, registro y programación de respaldos se aplican al reiniciar.",
			"requiresRestart": restartSettings,
		})
	}
}

// validateFolderPath accepts an empty path or an existing directory. A missing backup
// folder is fine since the first backup creates it.
func validateFolderPath(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		zap.L().Warn("failed to check folder path", zap.String("path", path), zap.Error(err))
		return errors.New("Error al verificar la carpeta: " + path)
	}
	if !info.IsDir() {
		return errors.New("La ruta indicada no es una carpeta: " + path)
	}
	return nil
}
