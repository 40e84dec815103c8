package parser

import (
	"github.com/tidwall/gjson"

	"message_mate/internal/api/meta/models"
)

type instagramParser struct{}

func (instagramParser) Platform() models.Platform { return models.PlatformInstagram }

func (instagramParser) Parse(raw []byte, id string, createdTime string) (*ParsedMessage, bool) {
	env, ok := openEnvelope(raw, id, createdTime)
	if !ok {
		return nil, false
	}

	participant := func(r gjson.Result) Participant {
		return Participant{ID: r.Get("id").String(), Username: r.Get("username").String()}
	}

	attachment := storyAttachment(env.doc)
	if attachment == nil {
		attachment = mediaAttachment(env.doc)
	}
	return env.finish(id, participant(env.from), participant(env.to), attachment)
}

// storyAttachment: story reply ưu tiên hơn story mention
func storyAttachment(doc gjson.Result) *models.MessageAttachment {
	if reply := doc.Get("story.reply_to"); reply.Exists() && reply.Get("link").String() != "" {
		return &models.MessageAttachment{
			Kind:    models.AttachmentStoryReply,
			URL:     reply.Get("link").String(),
			StoryId: reply.Get("id").String(),
		}
	}
	if mention := doc.Get("story.mention"); mention.Exists() && mention.Get("link").String() != "" {
		return &models.MessageAttachment{
			Kind:    models.AttachmentStoryMention,
			URL:     mention.Get("link").String(),
			StoryId: mention.Get("id").String(),
		}
	}
	return nil
}
