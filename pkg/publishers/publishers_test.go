package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sinks.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: queue
    type: sqs
    sqs:
      uri: https://sqs.ap-south-1.amazonaws.com/123/notifications
      region: ap-south-1
      access_key_id: AKIA
      secret_access_key: secret
  - id: topic
    type: SNS
    sns:
      topic_arn: arn:aws:sns:ap-south-1:123:notifications
      region: ap-south-1
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "queue" || enabled[1].ID != "topic" {
		t.Fatalf("expected queue and topic enabled, got %#v", enabled)
	}
	queue, ok := reg.ByID("queue")
	if !ok || queue.SQS.Region != "ap-south-1" || queue.SQS.AccessKeyID != "AKIA" {
		t.Fatalf("inline aws access not decoded: %#v", queue.SQS)
	}
	if enabled[1].Type != TypeSNS {
		t.Fatalf("expected type normalized to lower case, got %q", enabled[1].Type)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sinks.json")
	raw := `{"publishers":[{"id":"ps","type":"pubsub","pubsub":{"project_id":"p","topic":"t"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if cfg, ok := reg.ByID("ps"); !ok || cfg.PubSub.Topic != "t" {
		t.Fatalf("unexpected pubsub config %#v", cfg)
	}
}

func TestLoadRegistryEmptyPathIsOptional(t *testing.T) {
	reg, err := LoadRegistry("  ")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.Enabled()) != 0 {
		t.Fatalf("expected no publishers")
	}
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sinks.yaml")
	raw := `
publishers:
  - id: dup
    type: http
    http: {url: https://a.example}
  - id: dup
    type: http
    http: {url: https://b.example}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := []PublisherConfig{
		{ID: "h1", Type: TypeHTTP},
		{ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://q"}},
		{ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{AWSAccess: AWSAccess{Region: "us-east-1"}}},
		{ID: "p1", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}},
		{ID: "k1", Type: "kafka"},
	}
	for _, cfg := range cases {
		if err := validatePublisherConfig(cfg); err == nil {
			t.Fatalf("expected validation error for %#v", cfg)
		}
	}
}

func TestSanitizeHTTPDefaults(t *testing.T) {
	cfg := sanitizePublisherConfig(PublisherConfig{
		ID:   " hook ",
		Type: " HTTP ",
		HTTP: &HTTPPublisherConfig{URL: " https://example.com ", Headers: map[string]string{" ": "x", "X-A": " 1 "}},
	})
	if cfg.ID != "hook" || cfg.Type != TypeHTTP {
		t.Fatalf("unexpected id/type %q/%q", cfg.ID, cfg.Type)
	}
	if cfg.HTTP.Method != httpDefaultMethod || cfg.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("defaults not applied: %#v", cfg.HTTP)
	}
	if len(cfg.HTTP.Headers) != 1 || cfg.HTTP.Headers["X-A"] != "1" {
		t.Fatalf("headers not sanitized: %#v", cfg.HTTP.Headers)
	}
	if !cfg.EnabledValue() {
		t.Fatalf("expected enabled by default")
	}
}
