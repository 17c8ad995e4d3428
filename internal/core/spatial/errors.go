package spatial

import "errors"

var (
	// ErrDuplicateEntity is returned by Insert when the entity already has a
	// leaf in the tree.
	ErrDuplicateEntity = errors.New("spatial: entity already indexed")
	// ErrUnknownEntity is returned by Remove and Update for entities with no
	// leaf. Callers on the frame path treat it as "entity already gone".
	ErrUnknownEntity = errors.New("spatial: entity not indexed")
)
