package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/capture"
	"github.com/abdul-hamid-achik/hitshell/packages/http"
	"github.com/xeipuuv/gojsonschema"
)

type Result struct {
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual"`
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
}

func (r *Result) String() string {
	if r.Passed {
		return fmt.Sprintf("passed: %s %s", r.Subject, r.Operator)
	}
	return fmt.Sprintf("failed: %s %s: %s", r.Subject, r.Operator, r.Message)
}

type Evaluator struct {
	response  *http.Response
	extractor *capture.Extractor
	baseDir   string // Base directory for resolving schema file paths
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir confines schema files to dir.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

func NewEvaluator(resp *http.Response, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		response:  resp,
		extractor: capture.NewExtractor(resp),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate resolves subject against the response and applies op.
func (e *Evaluator) Evaluate(subject string, op Operator, expected any) *Result {
	result := &Result{
		Subject:  subject,
		Operator: op.String(),
		Expected: expected,
	}

	actual, _ := e.extractor.Extract(subject)
	result.Actual = actual

	passed, msg := e.compare(actual, op, expected)
	result.Passed = passed
	result.Message = msg

	// For length operator, show the computed length as the actual value
	if op == OpLength {
		result.Actual = computeLength(actual)
	}

	return result
}

// ValidateSchema validates the whole body against a JSON schema given as a
// file path or an inline JSON document.
func (e *Evaluator) ValidateSchema(schema string) *Result {
	body, _ := e.extractor.Extract("body")
	result := &Result{Subject: "body", Operator: OpSchema.String(), Expected: schema, Actual: body}
	result.Passed, result.Message = e.schema(body, schema)
	return result
}

func (e *Evaluator) compare(actual any, op Operator, expected any) (bool, string) {
	switch op {
	case OpEquals:
		return e.equals(actual, expected)
	case OpNotEquals:
		passed, _ := e.equals(actual, expected)
		return negate(passed, fmt.Sprintf("expected not to equal %v", expected))
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return e.compareNumeric(actual, expected, op.String())
	case OpContains:
		return e.contains(actual, expected)
	case OpNotContains:
		passed, _ := e.contains(actual, expected)
		return negate(passed, fmt.Sprintf("expected not to contain %v", expected))
	case OpStartsWith:
		return e.startsWith(actual, expected)
	case OpEndsWith:
		return e.endsWith(actual, expected)
	case OpMatches:
		return e.matches(actual, expected)
	case OpExists:
		return e.exists(actual)
	case OpNotExists:
		passed, _ := e.exists(actual)
		return negate(passed, "expected not to exist")
	case OpLength:
		return e.length(actual, expected)
	case OpIncludes:
		return e.includes(actual, expected)
	case OpNotIncludes:
		passed, _ := e.includes(actual, expected)
		return negate(passed, fmt.Sprintf("expected not to include %v", expected))
	case OpIn:
		return e.in(actual, expected)
	case OpNotIn:
		passed, _ := e.in(actual, expected)
		return negate(passed, fmt.Sprintf("expected not to be in %v", expected))
	case OpType:
		return e.typeCheck(actual, expected)
	case OpSchema:
		return e.schema(actual, fmt.Sprintf("%v", expected))
	default:
		return false, fmt.Sprintf("unknown operator: %v", op)
	}
}

func negate(passed bool, msg string) (bool, string) {
	if passed {
		return false, msg
	}
	return true, ""
}

func (e *Evaluator) equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func (e *Evaluator) compareNumeric(actual, expected any, op string) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)

	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case ">":
		passed = actualNum > expectedNum
	case ">=":
		passed = actualNum >= expectedNum
	case "<":
		passed = actualNum < expectedNum
	case "<=":
		passed = actualNum <= expectedNum
	}

	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

func (e *Evaluator) contains(actual, expected any) (bool, string) {
	if strings.Contains(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to contain '%v'", actual, expected)
}

func (e *Evaluator) startsWith(actual, expected any) (bool, string) {
	if strings.HasPrefix(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to start with '%v'", actual, expected)
}

func (e *Evaluator) endsWith(actual, expected any) (bool, string) {
	if strings.HasSuffix(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to end with '%v'", actual, expected)
}

func (e *Evaluator) matches(actual, expected any) (bool, string) {
	pattern := fmt.Sprintf("%v", expected)
	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}

	if re.MatchString(fmt.Sprintf("%v", actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

func (e *Evaluator) exists(actual any) (bool, string) {
	if actual == nil {
		return false, "expected to exist"
	}
	return true, ""
}

// computeLength returns the length of a value, or -1 if length cannot be computed
func computeLength(actual any) int {
	rv := reflect.ValueOf(actual)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return -1
	}
}

func (e *Evaluator) length(actual, expected any) (bool, string) {
	expectedLen, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}

	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

func (e *Evaluator) includes(actual, expected any) (bool, string) {
	arr, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}

	for _, item := range arr {
		if passed, _ := e.equals(item, expected); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected array to include %v", expected)
}

// in accepts the candidates as a list or as a comma-separated string.
func (e *Evaluator) in(actual, expected any) (bool, string) {
	var candidates []any
	switch v := expected.(type) {
	case []any:
		candidates = v
	case string:
		for _, s := range strings.Split(v, ",") {
			candidates = append(candidates, strings.TrimSpace(s))
		}
	default:
		return false, fmt.Sprintf("expected a list for 'in' operator, got %T", expected)
	}

	for _, item := range candidates {
		if passed, _ := e.equals(actual, item); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected %v to be in %v", actual, expected)
}

func (e *Evaluator) typeCheck(actual, expected any) (bool, string) {
	expectedType := fmt.Sprintf("%v", expected)
	var actualType string

	switch actual.(type) {
	case nil:
		actualType = "null"
	case bool:
		actualType = "boolean"
	case float64, float32, int, int64, int32:
		actualType = "number"
	case string:
		actualType = "string"
	case []any:
		actualType = "array"
	case map[string]any:
		actualType = "object"
	default:
		actualType = reflect.TypeOf(actual).String()
	}

	if actualType == expectedType {
		return true, ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", expectedType, actualType)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	if f, ok := toFloat64(v); ok && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

// validatePathWithinBase checks that the resolved path stays within the base directory
// to prevent path traversal attacks
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

func (e *Evaluator) loadSchema(schema string) ([]byte, error) {
	trimmed := strings.TrimSpace(schema)
	if strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}

	schemaPath := schema
	if !filepath.IsAbs(schemaPath) && e.baseDir != "" {
		schemaPath = filepath.Join(e.baseDir, schemaPath)
	}
	if err := validatePathWithinBase(schemaPath, e.baseDir); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %v", err)
	}
	return data, nil
}

func (e *Evaluator) schema(actual any, schema string) (bool, string) {
	schemaData, err := e.loadSchema(schema)
	if err != nil {
		return false, err.Error()
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaData), gojsonschema.NewBytesLoader(actualJSON))
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}

	if result.Valid() {
		return true, ""
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errors, "; "))
}
