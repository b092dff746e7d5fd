package models

// ColorError is the embed color used for every failure response
const ColorError = 0xE02B2B

// ColorInfo is the embed color used for informational responses
const ColorInfo = 0x5865F2

// Response is an outbound message: plain content, an embed, or both
type Response struct {
	Content string
	Embed   *Embed
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// TextResponse builds a plain text response
func TextResponse(content string) Response {
	return Response{Content: content}
}

// ErrorResponse builds a red embed response
func ErrorResponse(title, description string) Response {
	return Response{Embed: &Embed{Title: title, Description: description, Color: ColorError}}
}

// Presence is the activity shown next to the agent's name
type Presence struct {
	Activity string
}
