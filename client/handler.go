package client

import (
	"fmt"
	"net/http"

	"termomaz/config"
	"termomaz/database"
	"termomaz/httputil"
	"termomaz/model"
	"termomaz/parsers"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// GetClientsHandler lists clients by name. ?q= filters on name, phone or email.
func GetClientsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clients, err := database.GetAllClients(conn, model.ClientFilters{Query: r.URL.Query().Get("q")})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, clients)
	}
}

// GetClientHandler returns the client with its order history, newest first.
func GetClientHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		c, err := database.GetClientByID(conn, id)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		orders, err := database.GetOrders(conn, model.OrderFilters{ClientID: id})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"client": c,
			"orders": orders,
		})
	}
}

func CreateClientHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input model.ClientInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		input.Normalize()
		if err := model.Check(input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		var id int64
		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			var err error
			id, err = database.CreateClientInTx(tx, input)
			return err
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		zap.L().Info("client created", zap.Int64("client_id", id))
		c, err := database.GetClientByID(conn, id)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, c)
	}
}

func UpdateClientHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		var input model.ClientInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		input.Normalize()
		if err := model.Check(input); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			return database.UpdateClientInTx(tx, id, input)
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		c, err := database.GetClientByID(conn, id)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, c)
	}
}

// DeleteClientHandler refuses with 409 when the client still has orders.
func DeleteClientHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			return database.DeleteClientInTx(tx, id)
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		zap.L().Info("client deleted", zap.Int64("client_id", id))
		httputil.WriteMessage(w, http.StatusOK, "Cliente eliminado.")
	}
}

// ImportClientsHandler upserts clients by name from an uploaded CSV.
func ImportClientsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, ok := httputil.CSVUpload(w, r)
		if !ok {
			return
		}
		defer file.Close()

		decoded, err := parsers.NewDecodingReader(file, config.Get().Shop.CSVEncoding)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		records, skipped, err := parsers.ParseClientCSV(decoded)
		if err != nil {
			httputil.WriteMessage(w, http.StatusBadRequest, "No se pudo analizar el CSV: "+err.Error())
			return
		}
		if len(records) == 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				"message": "El CSV no contiene clientes válidos.",
				"skipped": skipped,
			})
			return
		}

		var created, updated int
		err = database.WithTx(conn, func(tx *sqlx.Tx) error {
			for _, rec := range records {
				isNew, err := database.UpsertClientByNameInTx(tx, rec)
				if err != nil {
					return fmt.Errorf("cliente %q: %w", rec.Name, err)
				}
				if isNew {
					created++
				} else {
					updated++
				}
			}
			return nil
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		zap.L().Info("clients imported", zap.Int("created", created), zap.Int("updated", updated), zap.Int("skipped", len(skipped)))
		message := fmt.Sprintf("Importación completada. Nuevos: %d, actualizados: %d.", created, updated)
		if len(skipped) > 0 {
			message += fmt.Sprintf(" Se omitieron %d filas.", len(skipped))
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"message": message,
			"created": created,
			"updated": updated,
			"skipped": skipped,
		})
	}
}

func ExportClientsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clients, err := database.GetAllClients(conn, model.ClientFilters{})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		charset := config.Get().Shop.CSVEncoding
		out, err := parsers.NewEncodingWriter(w, charset)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.StartCSVDownload(w, "clientes.csv", charset)
		if err := parsers.WriteClientCSV(out, clients); err != nil {
			zap.L().Error("failed to write client export", zap.Error(err))
			return
		}
		if err := out.Close(); err != nil {
			zap.L().Error("failed to flush client export", zap.Error(err))
		}
	}
}
