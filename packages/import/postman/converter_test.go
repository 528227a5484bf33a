package postman

import (
	"strings"
	"testing"
)

const collection = `{
	"info": {"name": "Users API", "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"},
	"variable": [{"key": "baseUrl", "value": "https://api.example.com"}],
	"item": [
		{
			"name": "Users",
			"item": [
				{
					"name": "List Users",
					"request": {
						"method": "GET",
						"url": {"raw": "{{baseUrl}}/users"},
						"header": [
							{"key": "Accept", "value": "application/json"},
							{"key": "X-Debug", "value": "1", "disabled": true}
						],
						"auth": {"type": "bearer", "bearer": [{"key": "token", "value": "{{token}}"}]}
					},
					"response": [{"name": "ok", "code": 200}]
				},
				{
					"name": "Create User",
					"request": {
						"method": "POST",
						"url": "{{baseUrl}}/users",
						"body": {
							"mode": "raw",
							"raw": "{\"name\":\"ada\"}",
							"options": {"raw": {"language": "json"}}
						}
					},
					"response": [{"name": "created", "code": 201}]
				}
			]
		},
		{
			"name": "Login",
			"request": {
				"method": "POST",
				"url": {"raw": "{{baseUrl}}/login"},
				"body": {
					"mode": "urlencoded",
					"urlencoded": [
						{"key": "user", "value": "ada"},
						{"key": "pass", "value": "s3cret"}
					]
				},
				"auth": {"type": "apikey", "apikey": [
					{"key": "key", "value": "api_key"},
					{"key": "value", "value": "abc"},
					{"key": "in", "value": "query"}
				]}
			}
		}
	]
}`

func TestConvert(t *testing.T) {
	result, err := NewConverter().Convert([]byte(collection))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		"# Generated from Postman collection: Users API\n",
		"# Users - List Users\nheaders.set Accept application/json\nauth.bearer \"${token}\"\nhttp.get https://api.example.com/users\nresponse.expect status == 200\nauth.clear\nheaders.clear Accept\n",
		"# Users - Create User\nhttp.post https://api.example.com/users \"{\\\"name\\\":\\\"ada\\\"}\" application/json\nresponse.expect status == 201\n",
		"# Login\nhttp.post https://api.example.com/login \"pass=s3cret&user=ada\" application/x-www-form-urlencoded api_key=abc\nresponse.expect status < 400\n",
	}
	for _, want := range expected {
		if !strings.Contains(result, want) {
			t.Errorf("expected result to contain %q, got:\n%s", want, result)
		}
	}
	if strings.Contains(result, "X-Debug") {
		t.Error("expected disabled header to be skipped")
	}
}

func TestConvert_Expander(t *testing.T) {
	converter := NewConverter(WithExpander(stubExpander{"token": "t0k"}), WithAssertions(false))

	result, err := converter.Convert([]byte(collection))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, "auth.bearer t0k\n") {
		t.Errorf("expected token to be expanded, got:\n%s", result)
	}
	if strings.Contains(result, "response.expect") {
		t.Error("expected no assertions when disabled")
	}
}

func TestConvert_InvalidJSON(t *testing.T) {
	if _, err := NewConverter().Convert([]byte("[")); err == nil {
		t.Error("expected error for invalid collection")
	}
}

type stubExpander map[string]string

func (s stubExpander) Resolve(input string) string {
	for k, v := range s {
		input = strings.ReplaceAll(input, "${"+k+"}", v)
	}
	return input
}
