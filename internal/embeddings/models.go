package embeddings

// fastEmbedDimensions lists the dimensions of models the local provider can
// load, keyed by the names accepted in configuration.
var fastEmbedDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"fast-all-MiniLM-L6-v2":                  384,
	"fast-bge-small-en-v1.5":                 384,
	"fast-bge-small-en":                      384,
	"fast-bge-base-en-v1.5":                  768,
	"fast-bge-base-en":                       768,
	"fast-bge-small-zh-v1.5":                 512,
}

// fastEmbedModelDimension returns the dimension for a known local model.
func fastEmbedModelDimension(model string) (int, bool) {
	dim, ok := fastEmbedDimensions[model]
	return dim, ok
}

// openAIDimensions lists the dimensions of supported OpenAI embedding models.
var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// openAIModelDimension returns the dimension for a known OpenAI model.
func openAIModelDimension(model string) (int, bool) {
	dim, ok := openAIDimensions[model]
	return dim, ok
}
