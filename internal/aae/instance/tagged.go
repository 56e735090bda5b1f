package instance

// TaggedUsers is the per-tag, per-user bucket of instances the branch
// and component loaders build and the reducer consumes.
type TaggedUsers map[TagID]map[UserID][]Instance

// EnsureTag guarantees a (possibly empty) per-user map exists for tag,
// so every tag observed anywhere in a branch has an entry in every
// intermediate tagged-user map.
func (t TaggedUsers) EnsureTag(tag TagID) map[UserID][]Instance {
	if bucket, ok := t[tag]; ok {
		return bucket
	}
	bucket := make(map[UserID][]Instance)
	t[tag] = bucket
	return bucket
}

// EnsureUser guarantees the per-user map for tag exists and returns
// the current (tag, user) slice, which is nil when nothing has been
// appended for that user. It does not insert a key for user.
func (t TaggedUsers) EnsureUser(tag TagID, user UserID) []Instance {
	bucket := t.EnsureTag(tag)
	return bucket[user]
}

// Append adds inst to the (tag, user) bucket, creating it if absent.
func (t TaggedUsers) Append(tag TagID, user UserID, inst Instance) {
	bucket := t.EnsureTag(tag)
	bucket[user] = append(bucket[user], inst)
}

// Tags returns the set of tags currently present, in no particular
// order.
func (t TaggedUsers) Tags() []TagID {
	out := make([]TagID, 0, len(t))
	for tag := range t {
		out = append(out, tag)
	}
	return out
}

// TaggedInstances is the per-tag, per-user single-instance result the
// reducer produces and the weighter consumes.
type TaggedInstances map[TagID]map[UserID]Instance

// UnionTags returns the union, as a set, of every tag key across the
// given weight map and the tags carried by children: the tag set for a
// branch is the union of the metric's tagWeights keys and the tags
// carried by its children. When both are empty the set holds only
// DefaultTag.
func UnionTags(tagWeights map[TagID]float64, childTags []TagID) map[TagID]bool {
	set := make(map[TagID]bool, len(tagWeights)+len(childTags))
	for tag := range tagWeights {
		set[tag] = true
	}
	for _, tag := range childTags {
		set[tag] = true
	}
	if len(set) == 0 {
		set[DefaultTag] = true
	}
	return set
}
