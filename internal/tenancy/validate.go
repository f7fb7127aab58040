package tenancy

import (
	"net/url"
	"regexp"
	"strings"

	"feedbackhub/backend/internal/apperr"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

const (
	maxNameLen = 255
	maxSlugLen = 100
)

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("Name is required")
	}
	if len(name) > maxNameLen {
		return "", apperr.Validation("Name must be at most %d characters", maxNameLen)
	}
	return name, nil
}

func validateSlug(slug string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "", apperr.Validation("Slug is required")
	}
	if len(slug) > maxSlugLen || !slugPattern.MatchString(slug) {
		return "", apperr.Validation("Slug must contain only lowercase letters, digits and single hyphens")
	}
	return slug, nil
}

// validateWebhookURL returns nil for an empty value, which clears the webhook.
func validateWebhookURL(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validation("Webhook URL must be an absolute http(s) URL")
	}
	return &raw, nil
}

// normalizeOrigins accepts "*" or bare origins such as https://app.example.com:8443.
func normalizeOrigins(origins []string) ([]string, error) {
	out := make([]string, 0, len(origins))
	seen := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		if o != "*" {
			u, err := url.Parse(o)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" ||
				u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
				return nil, apperr.Validation("Invalid origin %q", o)
			}
		}
		seen[o] = true
		out = append(out, o)
	}
	return out, nil
}
