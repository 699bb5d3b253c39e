package api

// JSONFieldName exposes jsonFieldName to external tests.
var JSONFieldName = jsonFieldName

// OperationID returns the operationId generated for method and pattern.
func OperationID(method, pattern string) string {
	t, err := parseTemplate(pattern)
	if err != nil {
		panic(err)
	}
	return generateOperationID(method, t)
}
