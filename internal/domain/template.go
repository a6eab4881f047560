package domain

import "time"

// Placeholder types.
const (
	PlaceholderText       = "text"
	PlaceholderNumber     = "number"
	PlaceholderDate       = "date"
	PlaceholderCalculated = "calculated"
)

// Placeholder owners. Creator-owned fields are filled by the document creator
// before the contract is sent; signer-owned fields belong to the counterparty.
const (
	OwnerCreator = "creator"
	OwnerSigner  = "signer"
)

// Formula operations.
const (
	OpAdd         = "add"
	OpSubtract    = "subtract"
	OpMultiply    = "multiply"
	OpDivide      = "divide"
	OpModulo      = "modulo"
	OpDaysBetween = "days_between"
)

// Rounding modes for calculated placeholders.
const (
	RoundInteger = "integer"
	RoundDecimal = "decimal"
)

// Formula describes how a calculated placeholder derives its value: either the
// structured form (Operand1/Operation/Operand2) or a free-text arithmetic
// expression over other placeholder keys (UseTextFormula).
type Formula struct {
	Operand1       string `json:"operand1,omitempty" dynamodbav:"operand1"`
	Operation      string `json:"operation,omitempty" dynamodbav:"operation"`
	Operand2       string `json:"operand2,omitempty" dynamodbav:"operand2"`
	Rounding       string `json:"rounding,omitempty" dynamodbav:"rounding"`
	Text           string `json:"text,omitempty" dynamodbav:"text"`
	UseTextFormula bool   `json:"use_text_formula,omitempty" dynamodbav:"use_text_formula"`
}

// Placeholder defines a single named field of a template.
type Placeholder struct {
	Label    string   `json:"label" dynamodbav:"label"`
	Type     string   `json:"type" dynamodbav:"type"`
	Owner    string   `json:"owner" dynamodbav:"owner"`
	Required bool     `json:"required" dynamodbav:"required"`
	Formula  *Formula `json:"formula,omitempty" dynamodbav:"formula"`
}

// Template is a reusable document with {{KEY}} markers. Contracts snapshot the
// placeholders and content at creation, so a template referenced by a sent
// contract is effectively immutable from that contract's point of view.
type Template struct {
	TemplateID   string                 `json:"id" dynamodbav:"template_id"`
	Name         string                 `json:"name" dynamodbav:"name"`
	Placeholders map[string]Placeholder `json:"placeholders" dynamodbav:"placeholders"`
	Content      string                 `json:"content" dynamodbav:"content"`
	Translations map[string]string      `json:"translations,omitempty" dynamodbav:"translations"` // locale -> localized content
	CreatedAt    time.Time              `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time              `json:"updated" dynamodbav:"updated_at"`
}

type CreateTemplateRequest struct {
	Name         string                 `json:"name" validate:"required"`
	Placeholders map[string]Placeholder `json:"placeholders"`
	Content      string                 `json:"content" validate:"required"`
	Translations map[string]string      `json:"translations"`
}

type UpdateTemplateRequest struct {
	Name         *string                 `json:"name"`
	Placeholders *map[string]Placeholder `json:"placeholders"`
	Content      *string                 `json:"content"`
	Translations *map[string]string      `json:"translations"`
}
