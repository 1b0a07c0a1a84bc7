package usecase

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"resume-tailor/internal/domain"
	"resume-tailor/internal/model"
)

// The generation pipeline runs in fixed stages: aggregate the stored
// profile, compose or AI-enhance the resume document, validate it against
// the schema, render HTML, then PDF. Each stage only sees the output of
// the previous one.

// buildPayload assembles the material handed to the enhancement step.
func buildPayload(job *domain.ResumeJob, aggregated map[string]interface{}, overrides *Overrides) map[string]interface{} {
	payload := map[string]interface{}{
		"overrides": overrides.ToMap(),
	}
	if aggregated != nil {
		payload["aggregated"] = aggregated
	}
	if job.JobDescription != "" {
		payload["job_description"] = job.JobDescription
	}
	if job.Language != "" {
		payload["language"] = job.Language
	}
	return payload
}

// composeDocument builds the resume document without AI: profile fields
// are carried over as-is and overrides replace their sections wholesale.
// It is the fallback when no enhancer is configured or the AI service is
// unreachable.
func composeDocument(aggregated map[string]interface{}, overrides *Overrides) map[string]interface{} {
	doc := map[string]interface{}{}
	if aggregated != nil {
		if prof, ok := aggregated["profile"].(map[string]interface{}); ok {
			for _, key := range []string{"meta", "summary", "snapshot", "experience", "projects", "publications", "certifications", "extras"} {
				if v, ok := prof[key]; ok {
					doc[key] = v
				}
			}
		}
		if exp, ok := aggregated["experiences"]; ok {
			if _, present := doc["experience"]; !present {
				doc["experience"] = exp
			}
		}
		if proj, ok := aggregated["projects"]; ok {
			if _, present := doc["projects"]; !present {
				doc["projects"] = proj
			}
		}
	}
	if len(overrides.Publications) > 0 {
		doc["publications"] = overrides.Publications
	}
	if len(overrides.Certifications) > 0 {
		doc["certifications"] = overrides.Certifications
	}
	if len(overrides.Extras) > 0 {
		doc["extras"] = overrides.Extras
	}
	return doc
}

// validateDocument checks the composed document against the resume
// schema. A missing schema file disables validation rather than failing
// every job on a bare deployment.
func validateDocument(doc map[string]interface{}, tplDir string) error {
	schemaPath := filepath.Join(tplDir, "resume.schema.json")
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		return nil
	}
	return model.ValidateMap(doc, schemaPath)
}

// renderHTML executes the resume template over the document.
func renderHTML(doc map[string]interface{}, tplDir string) (string, error) {
	tplPath := filepath.Join(tplDir, "resume.html.tmpl")
	tpl, err := template.ParseFiles(tplPath)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// Enhancer turns the aggregated payload into a resume document. The live
// implementation delegates to the external AI service; tests inject
// fakes.
type Enhancer interface {
	EnhanceResume(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error)
}
