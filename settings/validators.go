package settings

import (
	"github.com/trezcool/masomo-admin/core"
)

var (
	translator = core.NewTranslator(core.DefaultLocale)
	validate   = core.NewValidator(translator)
)

func (p Preferences) validate() error {
	return core.ValidateStruct(validate, translator, p)
}
