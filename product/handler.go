package product

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

// GetProductsHandler lists the inventory. Supports ?name= (substring) and ?category=.
func GetProductsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		products, err := database.GetAllProducts(conn, model.ProductFilters{
			Name:     q.Get("name"),
			Category: q.Get("category"),
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, products)
	}
}

func GetProductHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		p, err := database.GetProductByID(conn, id)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, p)
	}
}

func CreateProductHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input model.ProductInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		input.Normalize()
		if err := input.Validate(); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		var id int64
		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			var err error
			id, err = CreateInTx(tx, input)
			return err
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		zap.L().Info("product created", zap.Int64("product_id", id), zap.String("name", input.Name))
		writeProduct(w, r, conn, id, http.StatusCreated)
	}
}

func UpdateProductHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		var input model.ProductInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		input.Normalize()
		if err := input.Validate(); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			return UpdateInTx(tx, id, input)
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		zap.L().Info("product updated", zap.Int64("product_id", id))
		writeProduct(w, r, conn, id, http.StatusOK)
	}
}

// DeleteProductHandler refuses with 409 when the product is on any order.
func DeleteProductHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.PathID(w, r, "id")
		if !ok {
			return
		}
		err := database.WithTx(conn, func(tx *sqlx.Tx) error {
			return database.DeleteProductInTx(tx, id)
		})
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		zap.L().Info("product deleted", zap.Int64("product_id", id))
		httputil.WriteMessage(w, http.StatusOK, "Producto eliminado.")
	}
}

func GetCategoriesHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := database.GetProductCategories(conn)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, categories)
	}
}

// GetLowStockHandler lists products at or under ?threshold=, defaulting to the configured threshold.
func GetLowStockHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold := httputil.QueryInt(r, "threshold", config.Get().Shop.LowStockThreshold)
		products, err := database.GetLowStockProducts(conn, threshold)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, products)
	}
}

// ImportProductsHandler upserts products by name from an uploaded CSV in one transaction.
func ImportProductsHandler(conn *sqlx.DB) http.HandlerFunc {
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
		rows, skipped, err := parsers.ParseProductCSV(decoded)
		if err != nil {
			httputil.WriteMessage(w, http.StatusBadRequest, "No se pudo analizar el CSV: "+err.Error())
			return
		}
		if len(rows) == 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				"message": "El CSV no contiene productos válidos.",
				"skipped": skipped,
			})
			return
		}

		var created, updated int
		err = database.WithTx(conn, func(tx *sqlx.Tx) error {
			for _, row := range rows {
				isNew, err := ImportRowInTx(tx, row)
				if err != nil {
					return fmt.Errorf("producto %q: %w", row.Name, err)
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

		zap.L().Info("products imported", zap.Int("created", created), zap.Int("updated", updated), zap.Int("skipped", len(skipped)))
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

func ExportProductsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := database.GetAllProducts(conn, model.ProductFilters{Category: r.URL.Query().Get("category")})
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
		httputil.StartCSVDownload(w, "productos.csv", charset)
		if err := parsers.WriteProductCSV(out, products); err != nil {
			zap.L().Error("failed to write product export", zap.Error(err))
			return
		}
		if err := out.Close(); err != nil {
			zap.L().Error("failed to flush product export", zap.Error(err))
		}
	}
}

func writeProduct(w http.ResponseWriter, r *http.Request, conn *sqlx.DB, id int64, status int) {
	p, err := database.GetProductByID(conn, id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, status, p)
}
