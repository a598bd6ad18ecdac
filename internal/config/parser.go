package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported configuration formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseFile reads a dashboard configuration file and decodes it.
// The format is detected from the extension and falls back to sniffing the content.
func ParseFile(path string) *ParseResult {
	result := &ParseResult{FilePath: path}

	content, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, ParseError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	format := DetectFormat(path)
	if format == "" {
		format = sniffFormat(content)
	}
	decoded := ParseBytes(content, format)
	decoded.FilePath = path
	for i := range decoded.Errors {
		if decoded.Errors[i].Path == "" {
			decoded.Errors[i].Path = path
		}
	}
	return decoded
}

// ParseBytes decodes configuration content in the given format.
// An empty format is detected from the content.
func ParseBytes(content []byte, format string) *ParseResult {
	if format == "" {
		format = sniffFormat(content)
	}
	result := &ParseResult{Format: format}

	if len(bytes.TrimSpace(content)) == 0 {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected a configuration document",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var (
		data interface{}
		err  error
	)
	switch format {
	case FormatJSON:
		err = json.Unmarshal(content, &data)
		if err != nil {
			result.Errors = append(result.Errors, jsonParseError(err, content))
			return result
		}
	case FormatYAML:
		err = yaml.Unmarshal(content, &data)
		if err != nil {
			result.Errors = append(result.Errors, yamlParseError(err))
			return result
		}
	default:
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("unsupported format: %q", format),
			Type:    ErrorTypeFormat,
		})
		return result
	}

	if data == nil {
		result.Errors = append(result.Errors, ParseError{
			Message: "configuration document is null",
			Type:    ErrorTypeFormat,
		})
		return result
	}
	m, ok := data.(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("invalid configuration: expected an object, got %T", data),
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Data = m
	return result
}

// DetectFormat returns the format implied by the file extension, or "".
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// sniffFormat treats anything that opens with '{' or '[' as JSON and the rest as YAML.
func sniffFormat(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

func jsonParseError(err error, content []byte) ParseError {
	pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		pe.Offset = syntaxErr.Offset
		pe.Line, pe.Column = offsetToLineColumn(content, syntaxErr.Offset)
		pe.Message = fmt.Sprintf("JSON syntax error: %s", syntaxErr.Error())
	case errors.As(err, &typeErr):
		pe.Offset = typeErr.Offset
		pe.Line, pe.Column = offsetToLineColumn(content, typeErr.Offset)
		pe.Message = fmt.Sprintf("type error at field '%s': expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}
	return pe
}

// offsetToLineColumn converts a byte offset to 1-based line and column numbers.
func offsetToLineColumn(content []byte, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

func yamlParseError(err error) ParseError {
	pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		pe.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
	}

	// yaml.v3 reports positions as "yaml: line N: ..."
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		pe.Line = line
	}
	return pe
}
