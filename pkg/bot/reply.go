package bot

import "fmt"

const replyFormat = "%s\n\n---\n\n%s | v%s"

// FormatReply appends the bot footer and version to message.
func (b *Bot) FormatReply(message string) (string, error) {
	footer, err := b.Config().Footer()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(replyFormat, message, footer, b.version), nil
}
