package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brickvault-api/internal/model"
)

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name     string
		identity *model.Identity
		want     bool
		missing  []string
	}{
		{"unset", nil, false, []string{"screen_name", "rebrickable_api_key"}},
		{"empty", &model.Identity{ID: "u"}, false, []string{"screen_name", "rebrickable_api_key"}},
		{"name only", &model.Identity{ID: "u", DisplayName: "bob"}, false, []string{"rebrickable_api_key"}},
		{"key only", &model.Identity{ID: "u", APIKey: "k"}, false, []string{"screen_name"}},
		{"complete", &model.Identity{ID: "u", DisplayName: "bob", APIKey: "k"}, true, nil},
		{"token not required", &model.Identity{ID: "u", DisplayName: "bob", APIKey: "k", APIUserToken: ""}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsComplete(tt.identity))
			assert.Equal(t, tt.missing, Missing(tt.identity))
		})
	}
}
