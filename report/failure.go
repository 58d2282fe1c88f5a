package report

import "floorwatch/models"

// FormatFailure renders the apology line for err in each requested locale.
// Errors that are not a *models.Failure get a generic line.
func (f *Formatter) FormatFailure(err error, locales []string) []RenderedMessage {
	failure, ok := models.AsFailure(err)

	messages := make([]RenderedMessage, 0, len(locales))
	for _, locale := range f.locales(locales) {
		text := genericFailure[locale]
		if ok {
			if line, found := failureLines[locale][failure.Reason]; found {
				text = line
			}
		}
		messages = append(messages, RenderedMessage{Locale: locale, Text: text})
	}
	return messages
}
