package metadata

// TypeKind tells the custom type families apart once flattened.
type TypeKind string

const (
	KindObject      TypeKind = "object"
	KindInputObject TypeKind = "input_object"
	KindScalar      TypeKind = "scalar"
	KindEnum        TypeKind = "enum"
)

// CustomType is one entry of the flattened custom_types section.
type CustomType struct {
	Kind          TypeKind
	Name          string
	Description   string
	Fields        []ObjectField
	Values        []EnumValue
	Relationships []TypeRelationship
}

// ParseCustomTypes flattens custom_types in the order input objects,
// objects, scalars, enums.
func ParseCustomTypes(ct *CustomTypes) []CustomType {
	out := []CustomType{}
	if ct == nil {
		return out
	}
	for _, t := range ct.InputObjects {
		out = append(out, CustomType{Kind: KindInputObject, Name: t.Name, Description: t.Description, Fields: append([]ObjectField{}, t.Fields...)})
	}
	for _, t := range ct.Objects {
		out = append(out, CustomType{
			Kind: KindObject, Name: t.Name, Description: t.Description,
			Fields:        append([]ObjectField{}, t.Fields...),
			Relationships: append([]TypeRelationship{}, t.Relationships...),
		})
	}
	for _, t := range ct.Scalars {
		out = append(out, CustomType{Kind: KindScalar, Name: t.Name, Description: t.Description})
	}
	for _, t := range ct.Enums {
		out = append(out, CustomType{Kind: KindEnum, Name: t.Name, Description: t.Description, Values: append([]EnumValue{}, t.Values...)})
	}
	return out
}

// ReformCustomTypes is the inverse of ParseCustomTypes.
func ReformCustomTypes(types []CustomType) CustomTypes {
	var ct CustomTypes
	for _, t := range types {
		switch t.Kind {
		case KindInputObject:
			ct.InputObjects = append(ct.InputObjects, InputObjectType{Name: t.Name, Description: t.Description, Fields: t.Fields})
		case KindObject:
			ct.Objects = append(ct.Objects, ObjectType{Name: t.Name, Description: t.Description, Fields: t.Fields, Relationships: t.Relationships})
		case KindScalar:
			ct.Scalars = append(ct.Scalars, ScalarType{Name: t.Name, Description: t.Description})
		case KindEnum:
			ct.Enums = append(ct.Enums, EnumType{Name: t.Name, Description: t.Description, Values: t.Values})
		}
	}
	return ct
}
