package httpio

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
)

// Memória usada pelo ParseMultipartForm antes de ir para arquivos temporários.
const multipartMemory = 8 << 20

// Folga para campos de texto e cabeçalhos das partes.
const formOverhead = 1 << 20

// ParseMultipart interpreta o corpo multipart/form-data. O corpo é limitado a
// maxFiles arquivos de maxFileBytes mais a folga dos campos; acima disso a
// requisição é rejeitada sem gravar o restante em disco.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxFiles int, maxFileBytes int64) error {
	limit := int64(maxFiles)*maxFileBytes + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.NewPayloadTooLargeError(limit)
		}
		return apperror.NewValidationError("Formulário multipart inválido.")
	}
	return nil
}

// HasField informa se o campo foi enviado no formulário, mesmo vazio.
func HasField(r *http.Request, name string) bool {
	if r.MultipartForm == nil {
		return false
	}
	_, ok := r.MultipartForm.Value[name]
	return ok
}

// Files lê os arquivos enviados sob qualquer um dos nomes informados.
// Cada arquivo é lido até maxBytes+1 para que o limite seja verificado adiante.
func Files(r *http.Request, maxBytes int64, names ...string) ([]domain.ImageUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var uploads []domain.ImageUpload
	for _, name := range names {
		for _, fh := range r.MultipartForm.File[name] {
			up, err := readFile(fh, maxBytes)
			if err != nil {
				return nil, err
			}
			uploads = append(uploads, up)
		}
	}
	return uploads, nil
}

// File lê um único arquivo opcional; retorna nil quando ausente.
func File(r *http.Request, maxBytes int64, name string) (*domain.ImageUpload, error) {
	uploads, err := Files(r, maxBytes, name)
	if err != nil || len(uploads) == 0 {
		return nil, err
	}
	return &uploads[0], nil
}

func readFile(fh *multipart.FileHeader, maxBytes int64) (domain.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.ImageUpload{}, apperror.NewFieldError("images", fmt.Sprintf("não foi possível ler '%s'", fh.Filename))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return domain.ImageUpload{}, apperror.NewFieldError("images", fmt.Sprintf("não foi possível ler '%s'", fh.Filename))
	}
	return domain.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
