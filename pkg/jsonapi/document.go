package jsonapi

// DocumentBuilder accumulates top-level meta for a data-less document.
type DocumentBuilder struct {
	doc Document
}

// NewDocument starts an empty document.
func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{}
}

// Meta sets a top-level meta member.
func (b *DocumentBuilder) Meta(key string, value any) *DocumentBuilder {
	if b.doc.Meta == nil {
		b.doc.Meta = make(Meta)
	}
	b.doc.Meta[key] = value
	return b
}

// Build returns the document.
func (b *DocumentBuilder) Build() Document {
	return b.doc
}

// NewSingleResourceDocument wraps one resource.
func NewSingleResourceDocument(r Resource) Document {
	return Document{Data: r}
}

// NewCollectionDocument wraps resources and records their count under
// meta.total. A nil slice renders as [].
func NewCollectionDocument(resources []Resource) Document {
	if resources == nil {
		resources = []Resource{}
	}
	return Document{Data: resources, Meta: Meta{"total": len(resources)}}
}

// NewErrorDocument wraps errors.
func NewErrorDocument(errs ...Error) Document {
	return Document{Errors: errs}
}
