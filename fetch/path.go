package fetch

import (
	"fmt"
	"strings"

	"relfetch/orm"
	"relfetch/schema"
)

// Path binds one resolved relationship hop to the concrete entity set it
// will be fetched for. All entities share the parent mapped type; the
// related table is the hop's target.
type Path struct {
	session  *orm.Session
	entities []*orm.Entity
	parent   *schema.Table
	related  *schema.Table
	rel      schema.Relationship
	backrefs bool
}

// parsePath resolves a path specifier against a parent type. Dotted paths
// are expanded hop by hop: each intermediate hop must already be loaded,
// and the next segment resolves against the union of related entities
// flattened across every parent.
func parsePath(session *orm.Session, entities []*orm.Entity, parent *schema.Table, spec any, backrefs bool) (*Path, error) {
	reg := session.Registry()

	var attr string
	switch sp := spec.(type) {
	case string:
		segments := strings.Split(sp, ".")
		if len(segments) > 1 {
			rel, err := reg.Resolve(parent.Name, segments[0])
			if err != nil {
				return nil, err
			}
			children, err := flattenLoaded(entities, rel)
			if err != nil {
				return nil, err
			}
			related, err := reg.Table(rel.RemoteTable)
			if err != nil {
				return nil, err
			}
			return parsePath(session, children, related, strings.Join(segments[1:], "."), backrefs)
		}
		attr = segments[0]
	case schema.Attr:
		if sp.Table != parent.Name {
			return nil, fmt.Errorf("%w: attribute %s.%s requested for %s entities",
				ErrNotARelationship, sp.Table, sp.Name, parent.Name)
		}
		attr = sp.Name
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownPathSpec, spec)
	}

	rel, err := reg.Resolve(parent.Name, attr)
	if err != nil {
		return nil, err
	}
	related, err := reg.Table(rel.RemoteTable)
	if err != nil {
		return nil, err
	}
	return &Path{
		session:  session,
		entities: entities,
		parent:   parent,
		related:  related,
		rel:      rel,
		backrefs: backrefs,
	}, nil
}

// flattenLoaded collects the already-loaded relationship attribute across
// all entities into one flat set. Nil to-one values are skipped.
func flattenLoaded(entities []*orm.Entity, rel schema.Relationship) ([]*orm.Entity, error) {
	var children []*orm.Entity
	for _, entity := range entities {
		if !entity.RelationLoaded(rel.Name) {
			return nil, fmt.Errorf("%w: %s.%s must be fetched before deeper paths",
				ErrUnloadedRelation, entity.Table().Name, rel.Name)
		}
		if rel.ToMany() {
			many, _ := entity.Many(rel.Name)
			children = append(children, many...)
		} else {
			one, _ := entity.One(rel.Name)
			if one != nil {
				children = append(children, one)
			}
		}
	}
	return children, nil
}

// fetcher selects the fetch strategy for the hop. An association table
// forces many-to-many; otherwise the relationship direction decides.
func (p *Path) fetcher() Fetcher {
	switch {
	case p.rel.JunctionTable != "":
		return newManyToManyFetcher(p)
	case p.rel.Kind == schema.ManyToOne:
		return newManyToOneFetcher(p)
	default:
		return newOneToManyFetcher(p)
	}
}
