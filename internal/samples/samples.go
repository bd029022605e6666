// Package samples seeds an empty workflow store with illustrative workflows.
package samples

import (
	"context"
	"log/slog"
	"time"

	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/pkg/schema"
)

const (
	ContactFormWorkflowID = "contact-form-processor"
	DataSyncWorkflowID    = "scheduled-data-sync"

	// DataSyncCron fires every six hours.
	DataSyncCron = "0 */6 * * *"
)

// InitializeSampleWorkflows writes the sample workflows when the store holds
// no workflows at all. It reports whether anything was written.
func InitializeSampleWorkflows(ctx context.Context, s store.WorkflowStore, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	existing, err := s.ReadAllWorkflows(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "samples: store not empty, skipping", "workflows", len(existing))
		return false, nil
	}

	workflows := Workflows(time.Now().UTC())
	if err := s.WriteAllWorkflows(ctx, workflows); err != nil {
		return false, err
	}
	for _, wf := range workflows {
		logger.InfoContext(ctx, "samples: seeded workflow", "id", wf.ID, "name", wf.Name, "trigger", wf.Trigger.Type)
	}
	return true, nil
}

// Workflows returns the sample definitions stamped with now. Numeric config
// values are float64 so the definitions equal what a JSON store reads back.
func Workflows(now time.Time) []schema.WorkflowDefinition {
	return []schema.WorkflowDefinition{
		contactForm(now),
		dataSync(now),
	}
}

func contactForm(now time.Time) schema.WorkflowDefinition {
	return schema.WorkflowDefinition{
		ID:          ContactFormWorkflowID,
		Name:        "Procesar formulario de contacto",
		Description: "Normaliza un envío del formulario web, clasifica su prioridad y notifica al equipo.",
		Trigger: schema.Trigger{
			Type:   schema.TriggerWebhook,
			Config: map[string]any{"path": "/webhooks/" + ContactFormWorkflowID, "method": "POST"},
		},
		Steps: []schema.WorkflowStep{
			{
				ID:   "extract",
				Type: schema.StepTypeDataTransform,
				Name: "Extraer datos del contacto",
				Config: map[string]any{
					"transform": map[string]any{
						"name":    "$.name",
						"email":   "$.email",
						"message": "$.message",
						"company": "$.company",
						"source":  "web-form",
					},
				},
				Next: "log-received",
			},
			{
				ID:   "log-received",
				Type: schema.StepTypeLog,
				Name: "Registrar recepción",
				Config: map[string]any{
					"message": "Nuevo contacto recibido",
					"level":   "info",
				},
				Next: "notify",
			},
			{
				ID:   "notify",
				Type: schema.StepTypeHTTPRequest,
				Name: "Notificar al equipo",
				Config: map[string]any{
					"url":    "https://httpbin.org/post",
					"method": "POST",
					"headers": map[string]any{
						"Content-Type": "application/json",
					},
					"body": map[string]any{
						"text": "Nuevo contacto de ${{ $.name }} <${{ $.email }}>",
					},
					"timeout": 10000.0,
				},
				Next: "priority",
			},
			{
				ID:   "priority",
				Type: schema.StepTypeCondition,
				Name: "Clasificar prioridad",
				Config: map[string]any{
					"condition":  "$.json != nil && $.json.text != nil",
					"trueValue":  map[string]any{"priority": "normal", "notified": true},
					"falseValue": map[string]any{"priority": "review", "notified": false},
				},
				Next: "log-done",
			},
			{
				ID:     "log-done",
				Type:   schema.StepTypeLog,
				Name:   "Registrar resultado",
				Config: map[string]any{"message": "Formulario procesado", "level": "info"},
			},
		},
		CreatedAt: &now,
		UpdatedAt: &now,
	}
}

func dataSync(now time.Time) schema.WorkflowDefinition {
	return schema.WorkflowDefinition{
		ID:          DataSyncWorkflowID,
		Name:        "Sincronización de datos programada",
		Description: "Descarga usuarios de la API externa cada seis horas y conserva los campos relevantes.",
		Trigger: schema.Trigger{
			Type:   schema.TriggerSchedule,
			Config: map[string]any{"cron": DataSyncCron},
		},
		Steps: []schema.WorkflowStep{
			{
				ID:   "fetch",
				Type: schema.StepTypeHTTPRequest,
				Name: "Obtener usuarios",
				Config: map[string]any{
					"url":     "https://jsonplaceholder.typicode.com/users",
					"method":  "GET",
					"timeout": 15000.0,
				},
				Next: "reshape",
			},
			{
				ID:   "reshape",
				Type: schema.StepTypeDataTransform,
				Name: "Normalizar usuarios",
				Config: map[string]any{
					"jq": `{users: map({id, name, email, company: .company.name}), total: length}`,
				},
				Next: "pause",
			},
			{
				ID:     "pause",
				Type:   schema.StepTypeDelay,
				Name:   "Esperar límite de la API",
				Config: map[string]any{"duration": 1000.0},
				Next:   "log",
			},
			{
				ID:     "log",
				Type:   schema.StepTypeLog,
				Name:   "Registrar sincronización",
				Config: map[string]any{"message": "Sincronización completada", "level": "info"},
			},
		},
		CreatedAt: &now,
		UpdatedAt: &now,
	}
}
