package testutil

import (
	"github.com/informationgrid/ingrid-search-utils/index/memory"
)

const (
	geschichte = "Die Geschichte der menschlichen Nutzung des Wassers"
	hydrologie = "und somit jene der Hydrologie, der Wasserwirtschaft und besonders"
	housing    = "one side, the bursting of the housing"
	antike     = "der Antike über das Mittelalter bis zur Neuzeit stand im Zentrum immer ein Konflikt zwischen einem zu viel und einem zu wenig an Wasser"
	religion   = "heute kommt dem Wasser in den meisten Religionen der Welt eine Sonderstellung"
)

// DummyDocuments are the eight fixture documents. Five belong to partner
// bund; "wasser" matches four documents, two of them of partner bund.
var DummyDocuments = []map[string]string{
	{"partner": "bund", "provider": "bund_1", "datatype": "iso", "metaclass": "1", "title": "Wasser", "content": geschichte},
	{"partner": "bund", "provider": "bund_1", "datatype": "iso", "metaclass": "1", "title": "Wasser", "content": hydrologie},
	{"partner": "bund", "provider": "bund_2", "datatype": "iso", "metaclass": "1", "title": "Wasser", "content": housing},
	{"partner": "bund", "provider": "bund_2", "datatype": "iso", "metaclass": "2", "title": "Wasser", "content": antike},
	{"partner": "bund", "provider": "bund_2", "datatype": "iso", "metaclass": "2", "title": "Wasser", "content": religion},
	{"partner": "ni", "provider": "ni_2", "content": housing},
	{"partner": "ni", "provider": "ni_2", "datatype": "csw", "metaclass": "2", "title": "Wasser", "content": religion},
	{"partner": "ni", "provider": "ni_2", "datatype": "csw", "metaclass": "3", "title": "Wasser", "content": religion},
}

// DummyIndex builds the fixture corpus. The optional argument sets the number
// of shards (default 1).
func DummyIndex(shards ...int) *memory.Index {
	n := 1
	if len(shards) > 0 {
		n = shards[0]
	}
	b := memory.NewBuilder(func(o *memory.Options) { o.Shards = n })
	for _, doc := range DummyDocuments {
		b.AddFields(doc)
	}
	return b.Build()
}
