package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxUploadBytes = 10 << 20

// CSVUpload opens the multipart "file" field, answering 400 itself on failure.
func CSVUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteMessage(w, http.StatusBadRequest, "No se pudo leer el archivo enviado: "+err.Error())
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		WriteMessage(w, http.StatusBadRequest, "Falta el archivo CSV (campo \"file\").")
		return nil, false
	}
	return file, true
}

// StartCSVDownload sets the headers for a CSV attachment in the given charset.
func StartCSVDownload(w http.ResponseWriter, filename, charset string) {
	if charset == "" || strings.HasPrefix(charset, "utf-8") {
		charset = "utf-8"
	}
	w.Header().Set("Content-Type", "text/csv; charset="+charset)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}
