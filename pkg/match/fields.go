package match

import "github.com/amsross/transitlambda/pkg/transit"

// OperatorFields weights an operator's short code above its full name, so
// "patco" beats "Port Authority Transit Corporation" spelled out.
func OperatorFields(op transit.Operator) []Field {
	return []Field{
		{Text: op.ShortName, Weight: 0.7},
		{Text: op.Name, Weight: 0.3},
	}
}

// StopFields matches stops on their name only.
func StopFields(s transit.Stop) []Field {
	return []Field{
		{Text: s.Name, Weight: 0.7},
	}
}
