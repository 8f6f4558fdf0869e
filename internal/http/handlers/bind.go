package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// bindDetails is the "details" member of a 400 produced by BindJSON.
type bindDetails struct {
	JSON   string       `json:"json,omitempty"`
	Field  string       `json:"field,omitempty"`
	Fields []FieldError `json:"fields,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

func (d bindDetails) message() string {
	switch {
	case len(d.Fields) > 0:
		return d.Fields[0].Field + " " + d.Fields[0].Message
	case d.JSON == "invalid_json_syntax":
		return "Malformed JSON body"
	default:
		return "Invalid request body"
	}
}

// BindJSON decodes and validates the body into out. On failure it writes a 400
// whose message names the first offending field and returns false.
func BindJSON(ctx *gin.Context, out any) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
			return false
		}

		d := describeBindError(err, out)
		RespondBadRequest(ctx, d.message(), d)
		return false
	}
	return true
}

func describeBindError(err error, out any) bindDetails {
	names := jsonNames(out)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   lookupName(names, fe.StructField()),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: ruleMessage(fe.Tag(), fe.Param()),
			})
		}
		return bindDetails{Fields: fields}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return bindDetails{JSON: "invalid_json_syntax"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		// request bodies are flat; the decoder reports the json key itself
		field := strings.TrimSpace(typeErr.Field)
		return bindDetails{
			JSON:  "invalid_json_type",
			Field: field,
			Fields: []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: "must be a " + jsonKind(typeErr.Type),
			}},
		}
	}

	if errors.Is(err, io.EOF) {
		return bindDetails{Reason: "empty body"}
	}
	return bindDetails{Reason: err.Error()}
}

// jsonNames maps Go field names of a flat request struct to their json keys.
func jsonNames(v any) map[string]string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	names := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			name = sf.Name
		}
		names[sf.Name] = name
	}
	return names
}

func lookupName(names map[string]string, goName string) string {
	if n, ok := names[goName]; ok {
		return n
	}
	return goName
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Float64, reflect.Float32:
		return "number"
	default:
		return t.String()
	}
}

// all bound fields are strings, so length rules read as characters
func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	default:
		return "failed " + rule + " validation"
	}
}
