package transport

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"slices"

	"github.com/papercomputeco/mathai/pkg/request"
)

const uploadField = "file"

// encodeMultipart renders form into a buffered multipart body. Fields are
// written in key order, then files in the order given.
func encodeMultipart(form *request.Form) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, k := range slices.Sorted(maps.Keys(form.Fields)) {
		if err := w.WriteField(k, form.Fields[k]); err != nil {
			return nil, "", fmt.Errorf("writing form field %q: %w", k, err)
		}
	}

	for _, f := range form.Files {
		if f.Reader == nil {
			return nil, "", fmt.Errorf("form file %q has no content", f.Name)
		}
		field := f.Field
		if field == "" {
			field = uploadField
		}
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %q: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", fmt.Errorf("copying form file %q: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
