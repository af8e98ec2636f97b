package jsonapi

// ResourceBuilder builds a Resource attribute by attribute.
type ResourceBuilder struct {
	resource Resource
}

// NewResource starts a resource of the given type and id.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{resource: Resource{
		Type:       resourceType,
		ID:         id,
		Attributes: make(map[string]any),
	}}
}

// Attr sets an attribute.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	b.resource.Attributes[key] = value
	return b
}

// Build returns the resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}
