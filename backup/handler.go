package backup

import (
	"errors"
	"net/http"
	"path/filepath"

	"termomaz/database"
	"termomaz/httputil"
)

// BackupHandler takes a snapshot on demand.
func BackupHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := m.Run("manual")
		if errors.Is(err, database.ErrBackupUnsupported) {
			httputil.WriteMessage(w, http.StatusNotImplemented, "El respaldo solo está disponible con SQLite.")
			return
		}
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]string{
			"message": "Respaldo creado.",
			"file":    filepath.Base(path),
		})
	}
}

func ListBackupsHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := m.List()
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, files)
	}
}
