package http

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
)

// MultipartField is a file part of a multipart/form-data body.
type MultipartField struct {
	Name string
	Path string
}

// BuildMultipartBody writes the files followed by the plain form fields.
func BuildMultipartBody(files []MultipartField, fields url.Values) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, f := range files {
		if err := writeFilePart(writer, f); err != nil {
			return nil, "", err
		}
	}

	for name, vals := range fields {
		for _, v := range vals {
			if err := writer.WriteField(name, v); err != nil {
				return nil, "", err
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, f MultipartField) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	part, err := writer.CreateFormFile(f.Name, filepath.Base(f.Path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}
