// Package terminology reconciles codelists against controlled terminology
// standards and loads standard packages from blob storage.
package terminology

import "definecore/pkg/define"

// itemFields is the part of a coded value the synchronizer reads and writes.
type itemFields struct {
	codedValue string
	alias      *define.Alias
	extended   string
}

// Synchronize returns a copy of cl whose coded values agree with std. A nil
// std means the standard was removed: alias and extended value flags are
// stripped while coded values stay untouched.
func Synchronize(cl define.CodeList, std *define.StandardCodeList) define.CodeList {
	out := cl.Clone()
	mapItems(&out, func(f itemFields) itemFields {
		if std == nil {
			f.alias = nil
			f.extended = ""
			return f
		}
		match, ok := std.Find(f.codedValue)
		switch {
		case ok:
			if !aliasEqual(f.alias, match.Alias) {
				f.alias = copyAlias(match.Alias)
			}
		case f.extended == define.ExtendedValueYes:
		default:
			f.alias = nil
			f.extended = define.ExtendedValueYes
		}
		return f
	})
	return out
}

// CheckNewValue applies the standard to a coded value about to be added to cl.
// It returns the alias to attach and the extended value flag. A value absent
// from a non-extensible standard codelist is rejected.
func CheckNewValue(cl define.CodeList, std *define.StandardCodeList, value string) (*define.Alias, string, error) {
	if std == nil {
		return nil, "", nil
	}
	if match, ok := std.Find(value); ok {
		return copyAlias(match.Alias), "", nil
	}
	if !std.Extensible {
		return nil, "", define.NewImportError(define.NonExtensibleViolation, cl.Name+"/"+value,
			"codelist %s is not extensible and value '%s' is not in the codelist", cl.Name, value)
	}
	return nil, define.ExtendedValueYes, nil
}

// Violations lists the coded values of cl breaking the standard: values absent
// from a non-extensible std that are not flagged as extended values.
func Violations(cl define.CodeList, std *define.StandardCodeList) []string {
	if std == nil || std.Extensible {
		return nil
	}
	var out []string
	for _, oid := range cl.ItemOrder {
		var f itemFields
		switch cl.Type {
		case define.CodeListEnumerated:
			item := cl.EnumeratedItems[oid]
			f = itemFields{codedValue: item.CodedValue, extended: item.ExtendedValue}
		case define.CodeListDecoded:
			item := cl.CodeListItems[oid]
			f = itemFields{codedValue: item.CodedValue, extended: item.ExtendedValue}
		default:
			continue
		}
		if _, ok := std.Find(f.codedValue); !ok && f.extended != define.ExtendedValueYes {
			out = append(out, f.codedValue)
		}
	}
	return out
}

// mapItems rewrites whichever item collection of cl is populated.
func mapItems(cl *define.CodeList, fn func(itemFields) itemFields) {
	for oid, item := range cl.EnumeratedItems {
		f := fn(itemFields{codedValue: item.CodedValue, alias: item.Alias, extended: item.ExtendedValue})
		item.Alias, item.ExtendedValue = f.alias, f.extended
		cl.EnumeratedItems[oid] = item
	}
	for oid, item := range cl.CodeListItems {
		f := fn(itemFields{codedValue: item.CodedValue, alias: item.Alias, extended: item.ExtendedValue})
		item.Alias, item.ExtendedValue = f.alias, f.extended
		cl.CodeListItems[oid] = item
	}
}

func aliasEqual(a, b *define.Alias) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyAlias(a *define.Alias) *define.Alias {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
