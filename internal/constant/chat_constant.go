package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
	ChatMessageRoleTool      = "tool"

	ChatSessionDefaultTitle = "Unnamed session"
	ChatGreetingMessage     = "Hi, how can I help you with your spreadsheet?"

	// Session titles are derived from the first user message, clipped here.
	ChatSessionTitleMaxLen = 60
)

const SpreadsheetSystemPrompt = `You are SheetGrid's spreadsheet assistant. You can read and modify the
user's workbook through the provided tools. Rows and columns are
zero-based. Row 0 is reserved for column headers; data writes that start
at row 0 are applied from row 1. When you change cells, confirm what you
changed using conventional cell references like A1. Prefer reading a
range before overwriting it. Answer plainly when no spreadsheet action
is needed.`
