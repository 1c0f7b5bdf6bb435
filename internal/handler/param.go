package handler

import (
	"imagetrans/internal/apperr"
	"imagetrans/internal/domain/models"
)

// taskParamFields is the wire form of the translation parameter tuple,
// shared by the multipart and JSON creation endpoints.
type taskParamFields struct {
	TargetLanguage string `json:"target_language" form:"target_language"`
	Detector       string `json:"detector" form:"detector"`
	Direction      string `json:"direction" form:"direction"`
	Translator     string `json:"translator" form:"translator"`
	Size           string `json:"size" form:"size"`
}

// parse validates every field. All fields are required; enum errors are
// returned to the client verbatim.
func (f taskParamFields) parse() (models.TaskParam, error) {
	var param models.TaskParam
	var err error

	if f.TargetLanguage == "" {
		return param, apperr.BadRequestf("missing target_language")
	}
	if param.TargetLanguage, err = models.ParseLanguage(f.TargetLanguage); err != nil {
		return param, apperr.BadRequestf("%v", err)
	}

	if f.Detector == "" {
		return param, apperr.BadRequestf("missing detector")
	}
	if param.Detector, err = models.ParseDetector(f.Detector); err != nil {
		return param, apperr.BadRequestf("%v", err)
	}

	if f.Direction == "" {
		return param, apperr.BadRequestf("missing direction")
	}
	if param.Direction, err = models.ParseDirection(f.Direction); err != nil {
		return param, apperr.BadRequestf("%v", err)
	}

	if f.Translator == "" {
		return param, apperr.BadRequestf("missing translator")
	}
	if param.Translator, err = models.ParseTranslator(f.Translator); err != nil {
		return param, apperr.BadRequestf("%v", err)
	}

	if f.Size == "" {
		return param, apperr.BadRequestf("missing size")
	}
	if param.Size, err = models.ParseSize(f.Size); err != nil {
		return param, apperr.BadRequestf("%v", err)
	}

	return param, nil
}
