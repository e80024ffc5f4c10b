package recommend

import (
	"fmt"

	"github.com/signalrank/signalrank/internal/domain"
	"github.com/signalrank/signalrank/internal/domain/record"
	"github.com/signalrank/signalrank/internal/domain/signal"
)

// buildTags converts the record's configured attribute values into outbound
// signal tags. When paths is nil the label's configured field paths apply.
// Tag order follows configuration order, then resolution order.
func (s *Service) buildTags(
	rec record.Record, label string, paths []string,
) ([]signal.Tag, error) {
	if paths == nil {
		var err error
		paths, err = s.cfg.fieldsFor(label)
		if err != nil {
			return nil, err
		}
	}

	var tags []signal.Tag
	for i, path := range paths {
		if path == "" {
			return nil, domain.NewConfigurationError(
				fmt.Sprintf("%s.data_fields[%s][%d]", s.cfg.Owner, label, i),
				"path must not be empty")
		}

		for _, value := range s.resolver.Values(rec, path, s.cfg.NullLiteral) {
			tags = append(tags, signal.Tag{
				ID:   path + ":" + signal.Digest(value, s.cfg.Salt),
				Name: path,
				Desc: s.cfg.Owner + "." + path,
			})
		}
	}
	return tags, nil
}
