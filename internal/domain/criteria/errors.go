package criteria

import "errors"

var (
	ErrGroupNotFound         = errors.New("criteria group not found")
	ErrGroupExists           = errors.New("criteria group already exists for this apply date")
	ErrGroupInUse            = errors.New("criteria group is referenced by criteria")
	ErrCriterionNotFound     = errors.New("criterion not found")
	ErrCriterionExists       = errors.New("criterion already exists for this apply date")
	ErrCriterionGroupMissing = errors.New("criterion group does not exist for this apply date")
	ErrInvalidWeight         = errors.New("weight must be between 0 and 1")
)
