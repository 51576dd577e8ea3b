package params

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

type pageQuery struct {
	Page    int    `json:"page" schema:"page" validate:"min=1"`
	PerPage int    `json:"per_page" schema:"per_page" validate:"omitempty,max=100"`
	Sort    string `json:"sort" schema:"sort" validate:"omitempty,oneof=asc desc"`
}

type notePayload struct {
	Title string   `json:"title" validate:"required"`
	Tags  []string `json:"tags" validate:"omitempty,max=4"`
}

func TestStruct_Values(t *testing.T) {
	schema := Struct[pageQuery]()

	got, err := schema.Coerce(Source{Values: url.Values{
		"page":     {"3"},
		"per_page": {"25"},
		"sort":     {"desc"},
		"unknown":  {"ignored"},
	}})
	if err != nil {
		t.Fatalf("Coerce() error = %v", err)
	}

	if page, _ := got["page"].(float64); page != 3 {
		t.Errorf("page = %v, want 3", got["page"])
	}
	if perPage, _ := got["per_page"].(float64); perPage != 25 {
		t.Errorf("per_page = %v, want 25", got["per_page"])
	}
	if got["sort"] != "desc" {
		t.Errorf("sort = %v, want %q", got["sort"], "desc")
	}
	if _, ok := got["unknown"]; ok {
		t.Error("unknown key survived coercion")
	}
}

func TestStruct_ConversionError(t *testing.T) {
	schema := Struct[pageQuery]()

	_, err := schema.Coerce(Source{Values: url.Values{"page": {"three"}}})
	if err == nil {
		t.Fatal("Coerce() error = nil, want conversion failure")
	}

	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Coerce() error = %T, want ValidationErrors", err)
	}
	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1", len(errs))
	}
	if errs[0].Field != "page" {
		t.Errorf("Field = %q, want %q", errs[0].Field, "page")
	}
}

func TestStruct_ValidationError(t *testing.T) {
	schema := Struct[pageQuery]()

	_, err := schema.Coerce(Source{Values: url.Values{
		"page": {"0"},
		"sort": {"sideways"},
	}})
	if err == nil {
		t.Fatal("Coerce() error = nil, want validation failure")
	}

	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Coerce() error = %T, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Fatalf("len(errs) = %d, want 2", len(errs))
	}

	fields := map[string]string{}
	for _, ve := range errs {
		fields[ve.Field] = ve.Rule
	}
	if rule := fields["page"]; rule != "min=1" {
		t.Errorf("page rule = %q, want %q", rule, "min=1")
	}
	if rule := fields["sort"]; rule != "oneof=asc desc" {
		t.Errorf("sort rule = %q, want %q", rule, "oneof=asc desc")
	}
}

func TestStruct_Body(t *testing.T) {
	schema := Struct[notePayload]()

	got, err := schema.Coerce(Source{Body: strings.NewReader(`{"title":"first","tags":["a","b"]}`)})
	if err != nil {
		t.Fatalf("Coerce() error = %v", err)
	}

	if got["title"] != "first" {
		t.Errorf("title = %v, want %q", got["title"], "first")
	}
	tags, _ := got["tags"].([]any)
	if len(tags) != 2 {
		t.Errorf("len(tags) = %d, want 2", len(tags))
	}
}

func TestStruct_BodyMalformed(t *testing.T) {
	schema := Struct[notePayload]()

	_, err := schema.Coerce(Source{Body: strings.NewReader(`{"title":`)})
	if err == nil {
		t.Fatal("Coerce() error = nil, want malformed json failure")
	}

	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Coerce() error = %T, want ValidationErrors", err)
	}
	if errs[0].Field != "body" {
		t.Errorf("Field = %q, want %q", errs[0].Field, "body")
	}
}

func TestStruct_BodyRequired(t *testing.T) {
	schema := Struct[notePayload]()

	_, err := schema.Coerce(Source{Body: strings.NewReader(`{"tags":[]}`)})
	if err == nil {
		t.Fatal("Coerce() error = nil, want required failure")
	}

	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Coerce() error = %T, want ValidationErrors", err)
	}
	if errs[0].Field != "title" {
		t.Errorf("Field = %q, want %q", errs[0].Field, "title")
	}
	if errs[0].Rule != "required" {
		t.Errorf("Rule = %q, want %q", errs[0].Rule, "required")
	}
}

func TestValidationErrors_WithLocation(t *testing.T) {
	errs := ValidationErrors{
		{Field: "page"},
		{Field: "sort"},
	}.WithLocation(Query)

	for _, ve := range errs {
		if ve.Location != Query {
			t.Errorf("Location = %q, want %q", ve.Location, Query)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{{Location: Query, Field: "page", Got: "three", Rule: "must be int"}}
	msg := errs.Error()
	for _, want := range []string{`location="query"`, `field="page"`, `rule="must be int"`, `got="three"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}
