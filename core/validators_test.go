package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string    `json:"name" validate:"required,notblank"`
	Date  string    `json:"date" validate:"omitempty,date"`
	Phone string    `json:"phone" validate:"omitempty,phone"`
	Items []subItem `json:"items" validate:"dive"`
}

type subItem struct {
	Code string `json:"code" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	translator := NewTranslator("en")
	validate := NewValidator(translator)

	tests := []struct {
		name       string
		in         sample
		wantFields map[string][]string
	}{
		{name: "valid", in: sample{Name: "أحمد", Date: "2024-01-31", Phone: "+249 912 345 678"}},
		{name: "required", in: sample{}, wantFields: map[string][]string{"name": {"this field is required"}}},
		{name: "blank", in: sample{Name: "   "}, wantFields: map[string][]string{"name": {"name cannot be blank"}}},
		{name: "date", in: sample{Name: "x", Date: "31/01/2024"}, wantFields: map[string][]string{"date": {"date must be a date formatted as YYYY-MM-DD"}}},
		{name: "phone", in: sample{Name: "x", Phone: "12ab"}, wantFields: map[string][]string{"phone": {"phone must be a valid phone number"}}},
		{name: "nested", in: sample{Name: "x", Items: []subItem{{Code: "a"}, {}}}, wantFields: map[string][]string{"items[1].code": {"this field is required"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(validate, translator, tt.in)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			apiErr := AsAPIError(err)
			assert.Equal(t, KindValidation, apiErr.Kind)
			assert.Equal(t, tt.wantFields, apiErr.Fields)
		})
	}
}

func TestValidateStruct_Arabic(t *testing.T) {
	translator := NewTranslator("ar")
	err := ValidateStruct(NewValidator(translator), translator, sample{})
	assert.Equal(t, "هذا الحقل مطلوب", AsAPIError(err).FieldMessage("name"))
}
