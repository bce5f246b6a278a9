package model

import "errors"

// ErrNoBaseData means no road segments or road network could be loaded.
var ErrNoBaseData = errors.New("no base data loaded")
