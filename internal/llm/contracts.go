package llm

// CardFields is the normalized shape we want from the LLM.
type CardFields struct {
	Company string   `json:"company"`
	Name    string   `json:"name"`
	Phones  []string `json:"phones"`
	Email   string   `json:"email"`
	Website string   `json:"website"`
	Address string   `json:"address"`
	RawText string   `json:"rawText"`
}

// canonicalKeys lists the schema keys in the order they are documented to the model.
var canonicalKeys = []string{"company", "name", "phones", "email", "website", "address", "rawText"}

// MaxPhones is the number of phone slots a card record carries.
const MaxPhones = 3
