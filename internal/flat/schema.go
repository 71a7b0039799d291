// Package flat groups apartment rooms into flats and marks adjacent flats
// with the semitone sub-zone identifier.
package flat

import (
	"strings"

	"github.com/sells-group/semitone-cli/internal/model"
)

// Schema names the room parameters the marker reads and writes.
type Schema struct {
	LevelParam     string `yaml:"level_param" mapstructure:"level_param"`
	SectionParam   string `yaml:"section_param" mapstructure:"section_param"`
	FlatTypeParam  string `yaml:"flat_type_param" mapstructure:"flat_type_param"`
	FlatParam      string `yaml:"flat_param" mapstructure:"flat_param"`
	ZoneIDParam    string `yaml:"zone_id_param" mapstructure:"zone_id_param"`
	SubZoneIDParam string `yaml:"sub_zone_id_param" mapstructure:"sub_zone_id_param"`
	SemitoneSuffix string `yaml:"semitone_suffix" mapstructure:"semitone_suffix"`
	KeySeparator   string `yaml:"key_separator" mapstructure:"key_separator"`
}

// DefaultSchema returns the parameter names used by the residential templates.
func DefaultSchema() Schema {
	return Schema{
		LevelParam:     "Уровень",
		SectionParam:   "BS_Блок",
		FlatTypeParam:  "ROM_Подзона",
		FlatParam:      "ROM_Зона",
		ZoneIDParam:    "ROM_Расчетная_подзона_ID",
		SubZoneIDParam: "ROM_Подзона_Index",
		SemitoneSuffix: ".Полутон",
		KeySeparator:   " ",
	}
}

// GroupKey joins the room's level, section and flat type. Missing
// parameters contribute empty strings, so rooms lacking all three share
// the key made of two separators.
func (s Schema) GroupKey(r model.Record) string {
	level, _ := r.Param(s.LevelParam)
	section, _ := r.Param(s.SectionParam)
	flatType, _ := r.Param(s.FlatTypeParam)
	return strings.Join([]string{level, section, flatType}, s.KeySeparator)
}

// FlatNumber returns the room's flat number using the lenient parse.
func (s Schema) FlatNumber(r model.Record) int {
	label, _ := r.Param(s.FlatParam)
	return ParseNumber(label)
}
