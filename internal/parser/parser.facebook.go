package parser

import (
	"github.com/tidwall/gjson"

	"message_mate/internal/api/meta/models"
)

// facebookParser: Messenger có name/email, không có story
type facebookParser struct{}

func (facebookParser) Platform() models.Platform { return models.PlatformFacebook }

func (facebookParser) Parse(raw []byte, id string, createdTime string) (*ParsedMessage, bool) {
	env, ok := openEnvelope(raw, id, createdTime)
	if !ok {
		return nil, false
	}

	participant := func(r gjson.Result) Participant {
		return Participant{
			ID:    r.Get("id").String(),
			Name:  r.Get("name").String(),
			Email: r.Get("email").String(),
		}
	}
	return env.finish(id, participant(env.from), participant(env.to), mediaAttachment(env.doc))
}
