package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// sqliteSchemes are the URL schemes database.url may carry. Plain paths and
// file: DSNs have none.
var sqliteSchemes = map[string]bool{"sqlite": true, "sqlite3": true, "file": true}

// Validate checks struct-tag constraints and the few rules tags cannot
// express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}

	if scheme, _, ok := strings.Cut(strings.TrimSpace(c.Database.URL), "://"); ok && !sqliteSchemes[strings.ToLower(scheme)] {
		return fmt.Errorf("database.url: unsupported scheme %q, only sqlite databases are supported", scheme)
	}

	if strings.Count(c.Messages.ChannelLinkedFmt, "%s") != 1 {
		return errors.New("messages.channel_linked_fmt must contain exactly one %s verb")
	}

	if c.Access.Password == c.Messages.ButtonViewChannels || c.Access.Password == c.Messages.ButtonCancel {
		return errors.New("access.password must differ from the keyboard button labels")
	}

	return nil
}
