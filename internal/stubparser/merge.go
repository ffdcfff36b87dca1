package stubparser

// fold merges the names a module or class body produced into one table.
// Later definitions of a name either replace an import, are dropped as
// duplicates or conflicts, or join an OverloadGroup.
func (v *visitor) fold(infos []NameInfo, classScope bool) (SymbolTable, error) {
	table := make(SymbolTable, len(infos))
	for _, info := range infos {
		existing, ok := table[info.Name]
		if !ok {
			table[info.Name] = info
			continue
		}

		_, existingImported := existing.Decl.(ImportedName)
		if classScope {
			_, newImported := info.Decl.(ImportedName)
			if existingImported || newImported {
				if v.lenient {
					continue
				}
				return nil, invalidStub(v.path, "unexpected import name in class: %s", info)
			}
		} else if existingImported {
			// imports may be shadowed freely, e.g. by layered star imports
			table[info.Name] = info
			continue
		}

		if info.Children != nil {
			if err := v.conflict(info); err != nil {
				return nil, err
			}
			continue
		}
		if equalInfo(existing, info) {
			// harmless, usually from a star import
			continue
		}
		if existing.Children != nil {
			if err := v.conflict(info); err != nil {
				return nil, err
			}
			continue
		}
		if _, group := info.Decl.(OverloadGroup); group {
			if err := v.conflict(info); err != nil {
				return nil, err
			}
			continue
		}

		var defs []Declaration
		if group, ok := existing.Decl.(OverloadGroup); ok {
			defs = make([]Declaration, 0, len(group.Definitions)+1)
			defs = append(defs, group.Definitions...)
		} else {
			defs = []Declaration{existing.Decl}
		}
		table[info.Name] = NameInfo{
			Name:       existing.Name,
			IsExported: existing.IsExported || info.IsExported,
			Decl:       OverloadGroup{Definitions: append(defs, info.Decl)},
		}
	}
	return table, nil
}

func (v *visitor) conflict(info NameInfo) error {
	return v.warn("name is already present in %s: %s", v.module, info)
}
