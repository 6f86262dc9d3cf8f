package limits

import (
	"testing"

	"github.com/google/uuid"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"/v1.1/foo", "/foo"},
		{"/v2/foo", "/foo"},
		{"/v2/foo/bar", "/foo/bar"},
		{"/v10.3/tenants", "/tenants"},
		{"/v1.1", "/v1.1"}, // no trailing segment, unchanged
		{"/v2", "/v2"},
		{"/v2/", "/v2/"}, // no segment after the separator
		{"/foo", "/foo"},
		{"/version/foo", "/version/foo"},
	}
	for _, tt := range tests {
		if got := NormalizeRoute(tt.uri); got != tt.want {
			t.Errorf("NormalizeRoute(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestRule_DisplayUnit(t *testing.T) {
	tests := []struct {
		unit string
		want string
	}{
		{"minute", "MINUTE"},
		{"HOUR", "HOUR"},
		{"60", UnknownUnit},
		{"", ""},
	}
	for _, tt := range tests {
		r := Rule{Unit: tt.unit}
		if got := r.DisplayUnit(); got != tt.want {
			t.Errorf("DisplayUnit(%q) = %q, want %q", tt.unit, got, tt.want)
		}
	}
}

func TestRule_DisplayURI(t *testing.T) {
	r := Rule{URI: "/v2/servers", Queries: []string{"name", "flavor"}}

	want := "/servers?flavor={flavor}&name={name}"
	if got := r.DisplayURI(); got != want {
		t.Errorf("DisplayURI() = %q, want %q", got, want)
	}
}

func TestRule_DisplayURI_NoQueries(t *testing.T) {
	r := Rule{URI: "/v1.1/servers"}
	if got := r.DisplayURI(); got != "/servers" {
		t.Errorf("DisplayURI() = %q, want %q", got, "/servers")
	}
}

func TestExpandURI(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   map[string]string
		want     string
	}{
		{
			name:     "known params substituted",
			template: "/servers?name={name}",
			params:   map[string]string{"name": "web-1"},
			want:     "/servers?name=web-1",
		},
		{
			name:     "unknown placeholders pass through",
			template: "/servers?name={name}&zone={zone}",
			params:   map[string]string{"name": "web-1"},
			want:     "/servers?name=web-1&zone={zone}",
		},
		{
			name:     "no placeholders",
			template: "/servers",
			params:   map[string]string{"name": "web-1"},
			want:     "/servers",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandURI(tt.template, tt.params); got != tt.want {
				t.Errorf("ExpandURI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRule_Validate(t *testing.T) {
	valid := Rule{ID: uuid.New(), URI: "/servers", Value: 10, Unit: "MINUTE"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on valid rule = %v", err)
	}

	tests := []struct {
		name string
		rule Rule
	}{
		{"missing id", Rule{URI: "/servers", Value: 10}},
		{"empty uri", Rule{ID: uuid.New(), Value: 10}},
		{"relative uri", Rule{ID: uuid.New(), URI: "servers", Value: 10}},
		{"zero value", Rule{ID: uuid.New(), URI: "/servers"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rule.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestRule_VerbList(t *testing.T) {
	r := Rule{}
	if got := r.VerbList(); len(got) != 5 {
		t.Errorf("VerbList() default = %v, want 5 verbs", got)
	}

	r.Verbs = []string{"GET"}
	if got := r.VerbList(); len(got) != 1 || got[0] != "GET" {
		t.Errorf("VerbList() = %v, want [GET]", got)
	}
}
