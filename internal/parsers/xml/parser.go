package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/kosarica/price-service/internal/parsers/charset"
)

// Parser implements XML parsing with multiple item path detection.
type Parser struct {
	options XmlParserOptions
}

// NewParser creates a new XML parser with the given options
func NewParser(options XmlParserOptions) *Parser {
	if options.AttributePrefix == "" {
		options.AttributePrefix = "@_"
	}
	if options.Encoding == "" {
		options.Encoding = "utf-8"
	}
	return &Parser{
		options: options,
	}
}

// ParseRawItems decodes content and returns the raw per-item maps at the
// (configured or auto-detected) items path, without applying a field
// mapping. internal/normalize builds the spec's candidate-tag-list field
// resolution directly on top of these maps instead of a single fixed
// XmlFieldMapping, since a price-comparison feed normalizer must cope with
// merchants whose tag names were never seen before.
func (p *Parser) ParseRawItems(content []byte) ([]map[string]interface{}, error) {
	decoded, err := p.decodeContent(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	data, err := p.parseXMLToMap(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	itemsPath := p.options.ItemsPath
	if itemsPath == "" {
		itemsPath = p.detectItemsPath(data)
		if itemsPath == "" {
			return nil, fmt.Errorf("could not detect items path in XML")
		}
	}

	return p.getItemsAtPath(data, itemsPath)
}

// decodeContent handles encoding detection and conversion to UTF-8
func (p *Parser) decodeContent(content []byte) (string, error) {
	// Check for BOM
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		// UTF-8 BOM
		return string(content[3:]), nil
	}
	if len(content) >= 2 && content[0] == 0xFF && content[1] == 0xFE {
		// UTF-16 LE BOM - not commonly supported, just strip it
		return string(content[2:]), nil
	}
	if len(content) >= 2 && content[0] == 0xFE && content[1] == 0xFF {
		// UTF-16 BE BOM
		return string(content[2:]), nil
	}

	// Detect encoding from XML declaration
	enc := p.options.Encoding
	if enc == "" || enc == "auto" {
		enc = p.detectEncodingFromDeclaration(content)
		if enc == "" {
			enc = string(charset.DetectEncoding(content))
		}
	}

	// Decode to UTF-8
	decoded, err := charset.Decode(content, charset.Encoding(enc))
	if err != nil {
		// Fallback to treating as UTF-8
		return string(content), nil
	}

	return decoded, nil
}

// detectEncodingFromDeclaration extracts encoding from XML declaration
func (p *Parser) detectEncodingFromDeclaration(content []byte) string {
	// Look for <?xml ... encoding="..." ?>
	re := regexp.MustCompile(`<\?xml[^?]*encoding=["']([^"']+)["'][^?]*\?>`)
	if match := re.FindSubmatch(content[:min(200, len(content))]); len(match) > 1 {
		enc := strings.ToLower(string(match[1]))
		// Normalize encoding names
		switch enc {
		case "windows-1250", "cp1250":
			return "windows-1250"
		case "iso-8859-2", "latin2":
			return "iso-8859-2"
		default:
			return enc
		}
	}
	return ""
}

// parseXMLToMap parses XML content into a nested map structure
func (p *Parser) parseXMLToMap(content string) (map[string]interface{}, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil // Already handled encoding
	}

	return p.decodeElement(decoder, nil)
}

// decodeElement recursively decodes XML elements into maps
func (p *Parser) decodeElement(decoder *xml.Decoder, start *xml.StartElement) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	// Add attributes if present
	if start != nil {
		for _, attr := range start.Attr {
			key := p.options.AttributePrefix + attr.Name.Local
			result[key] = attr.Value
		}
	}

	var textContent strings.Builder
	var childName string
	var childStart *xml.StartElement

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			childName = t.Name.Local
			childStart = &t

			// Recursively decode child element
			childValue, err := p.decodeElement(decoder, childStart)
			if err != nil {
				return nil, err
			}

			// Handle repeated elements (arrays)
			if existing, exists := result[childName]; exists {
				switch v := existing.(type) {
				case []interface{}:
					result[childName] = append(v, childValue)
				default:
					result[childName] = []interface{}{v, childValue}
				}
			} else {
				result[childName] = childValue
			}

		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text != "" {
				textContent.WriteString(text)
			}

		case xml.EndElement:
			// Store text content if present
			if text := textContent.String(); text != "" {
				if len(result) == 0 {
					// Return just the text as a map with special key
					result["#text"] = text
				} else {
					// Add text content to existing map
					result["#text"] = text
				}
			}
			return result, nil
		}
	}

	// Handle text content
	if text := textContent.String(); text != "" {
		result["#text"] = text
	}

	return result, nil
}

// detectItemsPath tries to find the path to items array in the XML data
func (p *Parser) detectItemsPath(data map[string]interface{}) string {
	// Common item paths to try
	commonPaths := []string{
		"products.product",
		"Products.Product",
		"items.item",
		"Items.Item",
		"data.product",
		"Data.Product",
		"Cjenik.Proizvod",
		"cjenik.proizvod",
		"catalog.product",
		"Catalog.Product",
	}

	for _, path := range commonPaths {
		if items, err := p.getItemsAtPath(data, path); err == nil && len(items) > 0 {
			return path
		}
	}

	// Try to find arrays in the data (depth-first search)
	return p.findArrayPath(data, "", 2)
}

// findArrayPath recursively searches for array paths
func (p *Parser) findArrayPath(data map[string]interface{}, prefix string, maxDepth int) string {
	if maxDepth <= 0 {
		return ""
	}

	for key, value := range data {
		currentPath := key
		if prefix != "" {
			currentPath = prefix + "." + key
		}

		switch v := value.(type) {
		case []interface{}:
			if len(v) > 0 {
				// Found an array with items
				return currentPath
			}
		case map[string]interface{}:
			// Recurse into nested map
			if found := p.findArrayPath(v, currentPath, maxDepth-1); found != "" {
				return found
			}
		}
	}

	return ""
}

// getItemsAtPath navigates to the specified path and returns items as a slice
func (p *Parser) getItemsAtPath(data map[string]interface{}, path string) ([]map[string]interface{}, error) {
	parts := strings.Split(path, ".")

	current := data
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			// Try case-insensitive match
			for k, v := range current {
				if strings.EqualFold(k, part) {
					value = v
					ok = true
					break
				}
			}
		}
		if !ok {
			return nil, fmt.Errorf("path segment '%s' not found", part)
		}

		// Last segment should be an array or single item
		if i == len(parts)-1 {
			return p.toItemSlice(value)
		}

		// Navigate deeper
		switch v := value.(type) {
		case map[string]interface{}:
			current = v
		default:
			return nil, fmt.Errorf("cannot navigate through %T at '%s'", value, part)
		}
	}

	return nil, fmt.Errorf("path not found: %s", path)
}

// toItemSlice converts a value to a slice of maps
func (p *Parser) toItemSlice(value interface{}) ([]map[string]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		result := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				result = append(result, m)
			}
		}
		return result, nil
	case map[string]interface{}:
		// Single item - wrap in slice
		return []map[string]interface{}{v}, nil
	default:
		return nil, fmt.Errorf("expected array or map, got %T", value)
	}
}

// min returns the minimum of two integers
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// GetBuffer returns a bytes.Buffer - helper for XML generation if needed
func GetBuffer() *bytes.Buffer {
	return new(bytes.Buffer)
}
