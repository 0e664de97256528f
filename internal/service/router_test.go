package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinical-reasoning-server/internal/domain"
)

func TestRoute(t *testing.T) {
	svc := NewRouterService(testTables(t), testLogger())

	tests := []struct {
		name       string
		request    domain.RouteRequest
		wantKind   domain.RouteKind
		wantTarget string
	}{
		{
			name:       "scheduling intent is a simple action",
			request:    domain.RouteRequest{Intent: "please schedule a follow-up for next week"},
			wantKind:   domain.ROUTE_SIMPLE,
			wantTarget: "scheduler.create_appointment",
		},
		{
			name:       "reminder intent is a simple action",
			request:    domain.RouteRequest{Intent: "remind the patient about their medication"},
			wantKind:   domain.ROUTE_SIMPLE,
			wantTarget: "notifications.send",
		},
		{
			name:       "record fetch is a simple action",
			request:    domain.RouteRequest{Intent: "Fetch record for patient 1042"},
			wantKind:   domain.ROUTE_SIMPLE,
			wantTarget: "ehr.fetch_record",
		},
		{
			name:     "clinical narrative takes the full pipeline",
			request:  domain.RouteRequest{Intent: "patient presents with three days of chest pain"},
			wantKind: domain.ROUTE_CLINICAL,
		},
		{
			name:     "empty intent defaults to clinical",
			request:  domain.RouteRequest{},
			wantKind: domain.ROUTE_CLINICAL,
		},
		{
			name: "an attached image forces the clinical path",
			request: domain.RouteRequest{
				Intent:   "schedule a follow-up",
				HasImage: true,
			},
			wantKind: domain.ROUTE_CLINICAL,
		},
		{
			name: "audio alone does not force the clinical path",
			request: domain.RouteRequest{
				Intent:   "schedule a follow-up",
				HasAudio: true,
			},
			wantKind:   domain.ROUTE_SIMPLE,
			wantTarget: "scheduler.create_appointment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := svc.Route(&tt.request)
			assert.Equal(t, tt.wantKind, decision.Kind)
			assert.Equal(t, tt.wantTarget, decision.Target)
			assert.NotEmpty(t, decision.Reason)
		})
	}
}
