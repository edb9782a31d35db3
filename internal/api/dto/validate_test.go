package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/civic-service/pkg/util"
)

func TestValidateReportsFailingFields(t *testing.T) {
	err := Validate(SubmitReportRequest{Latitude: 91, Longitude: 10})
	require.Error(t, err)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	fields := de.Details["fields"].(map[string]any)
	assert.Equal(t, "required", fields["Title"])
	assert.Equal(t, "latitude", fields["Latitude"])
	assert.Equal(t, "required", fields["CategoryID"])
}

func TestValidateReviewAction(t *testing.T) {
	assert.NoError(t, Validate(ReviewReportRequest{Action: "accept"}))
	assert.Error(t, Validate(ReviewReportRequest{Action: "escalate"}))
}

func TestNextCustomerRequestIDs(t *testing.T) {
	cases := map[string]struct {
		body string
		want []int64
		ok   bool
	}{
		"list":       {body: `{"service_ids":[3,1,2]}`, want: []int64{3, 1, 2}, ok: true},
		"empty list": {body: `{"service_ids":[]}`, want: []int64{}, ok: true},
		"missing":    {body: `{}`, ok: false},
		"scalar":     {body: `{"service_ids":5}`, ok: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var req NextCustomerRequest
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))
			ids, ok := req.IDs()
			assert.Equal(t, tc.ok, ok)
			if tc.ok && tc.want != nil {
				assert.Equal(t, tc.want, ids)
			}
		})
	}
}
