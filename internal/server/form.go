package server

import (
	"encoding/json"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// formList reads a list field from a multipart or urlencoded form. Clients
// send lists as repeated fields, as key[] fields, as a single JSON array or
// as one comma-joined value. The second result reports whether the key was
// sent at all; a present but empty field yields a non-nil empty slice.
func formList(values url.Values, key string) ([]string, bool) {
	raw, ok := values[key]
	if brackets, bok := values[key+"[]"]; bok {
		raw = append(raw, brackets...)
		ok = true
	}
	if !ok {
		return nil, false
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, splitListValue(v)...)
	}
	return out, true
}

func splitListValue(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if strings.HasPrefix(v, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(v), &arr); err == nil {
			return compact(arr)
		}
	}
	return compact(strings.Split(v, ","))
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// formBool reads a checkbox style flag. Anything strconv cannot parse,
// other than "on", is false.
func formBool(values url.Values, key string) bool {
	v := strings.TrimSpace(values.Get(key))
	if strings.EqualFold(v, "on") {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// present returns a pointer to the trimmed field value when the key was
// sent, nil otherwise.
func present(values url.Values, key string) *string {
	if _, ok := values[key]; !ok {
		return nil
	}
	v := strings.TrimSpace(values.Get(key))
	return &v
}

// formValues returns the request's text fields, multipart or not.
func formValues(ctx echo.Context) (url.Values, error) {
	form, err := ctx.MultipartForm()
	if err == nil {
		return url.Values(form.Value), nil
	}
	return ctx.FormParams()
}

// formFiles returns the parts sent under key. A request that is not
// multipart has none.
func formFiles(ctx echo.Context, key string) []*multipart.FileHeader {
	form, err := ctx.MultipartForm()
	if err != nil || form.File == nil {
		return nil
	}
	return form.File[key]
}

func formFile(ctx echo.Context, key string) *multipart.FileHeader {
	if fhs := formFiles(ctx, key); len(fhs) > 0 {
		return fhs[0]
	}
	return nil
}
