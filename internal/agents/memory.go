package agents

import "sort"

// RecentMemories returns up to count memories ordered by tick
// descending — most recent first.
func (s *AgentState) RecentMemories(count int) []Memory {
	if len(s.Memories) == 0 {
		return nil
	}
	sorted := make([]Memory, len(s.Memories))
	copy(sorted, s.Memories)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tick > sorted[j].Tick })
	if count > len(sorted) {
		count = len(sorted)
	}
	return sorted[:count]
}

// ImportantMemories returns up to count memories ordered by importance
// descending, for decision sources that want salient rather than recent
// context.
func (s *AgentState) ImportantMemories(count int) []Memory {
	if len(s.Memories) == 0 {
		return nil
	}
	sorted := make([]Memory, len(s.Memories))
	copy(sorted, s.Memories)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Importance > sorted[j].Importance })
	if count > len(sorted) {
		count = len(sorted)
	}
	return sorted[:count]
}
