package xml

// XmlParserOptions configures items-path detection and encoding handling.
type XmlParserOptions struct {
	ItemsPath       string `json:"itemsPath,omitempty"` // Path to items array (e.g., "products.product")
	Encoding        string `json:"encoding,omitempty"`
	AttributePrefix string `json:"attributePrefix,omitempty"` // Default: "@_"
}

// DefaultXmlOptions returns default XML parser options
func DefaultXmlOptions() XmlParserOptions {
	return XmlParserOptions{
		AttributePrefix: "@_",
		Encoding:        "utf-8",
	}
}
