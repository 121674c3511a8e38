package sampler

import (
	"github.com/pkg/errors"

	"github.com/CraigKelly/hsdm/model"
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(model.ErrConfiguration, format, args...)
}
