package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/threadline-hq/threadline-backend/internal/data/repos"
	types "github.com/threadline-hq/threadline-backend/internal/domain"
	"github.com/threadline-hq/threadline-backend/internal/pkg/dbctx"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

const groupNameMaxLen = 80

// Maintainer keeps context groups consistent with the link graph. Every
// accepted link runs through OnLink, which resolves membership, refreshes the
// group's topics and coherence, and splits groups that have drifted apart.
type Maintainer struct {
	cfg       Config
	groups    repos.ContextGroupRepo
	members   repos.ContextGroupMemberRepo
	links     repos.LinkRepo
	artifacts repos.ArtifactRepo
	graph     GraphStore
	log       *logger.Logger
}

func NewMaintainer(
	cfg Config,
	groups repos.ContextGroupRepo,
	members repos.ContextGroupMemberRepo,
	links repos.LinkRepo,
	artifacts repos.ArtifactRepo,
	graph GraphStore,
	baseLog *logger.Logger,
) *Maintainer {
	return &Maintainer{
		cfg:       cfg,
		groups:    groups,
		members:   members,
		links:     links,
		artifacts: artifacts,
		graph:     graph,
		log:       baseLog.With("component", "Maintainer"),
	}
}

// OnLink folds a newly accepted link into the group structure. Exactly one
// group survives holding both endpoints, then gets its metadata refreshed and
// its split condition checked.
func (m *Maintainer) OnLink(dbc dbctx.Context, a, b *types.Artifact) error {
	groupA, err := m.primaryGroupID(dbc, a.ID)
	if err != nil {
		return err
	}
	groupB, err := m.primaryGroupID(dbc, b.ID)
	if err != nil {
		return err
	}

	var groupID uuid.UUID
	switch {
	case groupA == uuid.Nil && groupB == uuid.Nil:
		groupID, err = m.createGroup(dbc, a, b)
	case groupA != uuid.Nil && groupB == uuid.Nil:
		groupID = groupA
		err = m.addMember(dbc, groupA, b.ID)
	case groupA == uuid.Nil && groupB != uuid.Nil:
		groupID = groupB
		err = m.addMember(dbc, groupB, a.ID)
	case groupA == groupB:
		groupID = groupA
	default:
		groupID, err = m.mergeGroups(dbc, groupA, groupB)
	}
	if err != nil {
		return err
	}

	return m.refreshGroup(dbc, groupID)
}

// primaryGroupID returns the lowest group id the artifact belongs to, or Nil.
func (m *Maintainer) primaryGroupID(dbc dbctx.Context, artifactID uuid.UUID) (uuid.UUID, error) {
	rows, err := m.members.GetByArtifactIDs(dbc, []uuid.UUID{artifactID})
	if err != nil {
		return uuid.Nil, fmt.Errorf("membership lookup: %w", err)
	}
	if len(rows) == 0 {
		return uuid.Nil, nil
	}
	return rows[0].GroupID, nil
}

func (m *Maintainer) createGroup(dbc dbctx.Context, a, b *types.Artifact) (uuid.UUID, error) {
	source, _ := Canonicalize(a, b)
	group := &types.ContextGroup{
		ID:             uuid.New(),
		TenantID:       a.TenantID,
		Name:           truncateName(source.Title),
		CoherenceScore: 1.0,
		Topics:         datatypes.JSON([]byte(`[]`)),
		Status:         types.GroupStatusActive,
	}
	if err := m.groups.Create(dbc, group); err != nil {
		return uuid.Nil, fmt.Errorf("group create: %w", err)
	}
	rows := []*types.ContextGroupMember{
		{ID: uuid.New(), GroupID: group.ID, ArtifactID: a.ID, Weight: 1.0},
		{ID: uuid.New(), GroupID: group.ID, ArtifactID: b.ID, Weight: 1.0},
	}
	if err := m.members.CreateIgnoreDuplicates(dbc, rows); err != nil {
		return uuid.Nil, fmt.Errorf("group member create: %w", err)
	}
	return group.ID, nil
}

func (m *Maintainer) addMember(dbc dbctx.Context, groupID, artifactID uuid.UUID) error {
	rows := []*types.ContextGroupMember{
		{ID: uuid.New(), GroupID: groupID, ArtifactID: artifactID, Weight: 1.0},
	}
	if err := m.members.CreateIgnoreDuplicates(dbc, rows); err != nil {
		return fmt.Errorf("group member create: %w", err)
	}
	return nil
}

// mergeGroups moves every member of the loser into the survivor and deletes
// the loser. The group with the lower id survives so repeated merges over the
// same pair are stable.
func (m *Maintainer) mergeGroups(dbc dbctx.Context, groupA, groupB uuid.UUID) (uuid.UUID, error) {
	survivor, loser := groupA, groupB
	if loser.String() < survivor.String() {
		survivor, loser = loser, survivor
	}

	loserMembers, err := m.members.GetByGroupID(dbc, loser)
	if err != nil {
		return uuid.Nil, fmt.Errorf("merge member lookup: %w", err)
	}
	moved := make([]*types.ContextGroupMember, 0, len(loserMembers))
	for _, row := range loserMembers {
		moved = append(moved, &types.ContextGroupMember{
			ID:         uuid.New(),
			GroupID:    survivor,
			ArtifactID: row.ArtifactID,
			Weight:     row.Weight,
		})
	}
	if err := m.members.CreateIgnoreDuplicates(dbc, moved); err != nil {
		return uuid.Nil, fmt.Errorf("merge member move: %w", err)
	}
	if err := m.members.DeleteByGroupIDs(dbc, []uuid.UUID{loser}); err != nil {
		return uuid.Nil, fmt.Errorf("merge member cleanup: %w", err)
	}
	if err := m.groups.DeleteByIDs(dbc, []uuid.UUID{loser}); err != nil {
		return uuid.Nil, fmt.Errorf("merge group delete: %w", err)
	}
	if err := m.graph.RemoveGroup(dbc.Ctx, loser); err != nil {
		m.log.Warn("Graph group removal failed after merge", "group_id", loser, "error", err)
	}
	return survivor, nil
}

// refreshGroup recomputes the group's metadata, then evaluates the split
// condition. The split itself never re-enters this evaluation: it is a single
// greedy pass per accepted link.
func (m *Maintainer) refreshGroup(dbc dbctx.Context, groupID uuid.UUID) error {
	group, err := m.groups.GetByID(dbc, groupID)
	if err != nil {
		return fmt.Errorf("group load: %w", err)
	}
	if group == nil {
		return nil
	}

	memberRows, err := m.members.GetByGroupID(dbc, groupID)
	if err != nil {
		return fmt.Errorf("group member load: %w", err)
	}
	if len(memberRows) == 0 {
		return m.deleteGroup(dbc, groupID)
	}

	memberIDs := make([]uuid.UUID, 0, len(memberRows))
	for _, row := range memberRows {
		memberIDs = append(memberIDs, row.ArtifactID)
	}

	links, err := m.refreshMetadata(dbc, group, memberIDs)
	if err != nil {
		return err
	}

	if group.CoherenceScore < m.cfg.SplitCoherenceThreshold && len(memberIDs) >= m.cfg.SplitMinSize {
		return m.splitGroup(dbc, group, memberIDs, links)
	}
	return nil
}

// refreshMetadata recomputes topics and coherence from current members and
// intra-group links, persists them on the group, and mirrors the change. The
// loaded links are returned so the caller can evaluate the split condition
// without a second query.
func (m *Maintainer) refreshMetadata(dbc dbctx.Context, group *types.ContextGroup, memberIDs []uuid.UUID) ([]*types.ArtifactLink, error) {
	links, err := m.links.GetAmongArtifactIDs(dbc, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("group link load: %w", err)
	}
	coherence := groupCoherence(len(memberIDs), links)

	topics, err := m.groupTopics(dbc, memberIDs)
	if err != nil {
		return nil, err
	}
	if err := m.groups.UpdateMetadata(dbc, group.ID, coherence, topics); err != nil {
		return nil, fmt.Errorf("group metadata update: %w", err)
	}
	group.CoherenceScore = coherence
	group.Topics = topics

	if err := m.graph.MirrorGroupChange(dbc.Ctx, group, memberIDs); err != nil {
		m.log.Warn("Graph group mirror failed", "group_id", group.ID, "error", err)
	}
	return links, nil
}

// splitGroup partitions the members by link connectivity in one greedy pass.
// Components of two or more become new groups, singletons leave the group
// structure entirely, and the original group is deleted. A connected group
// yields a single component: nothing can be separated, so the split is a
// no-op instead of a delete-and-recreate cycle.
func (m *Maintainer) splitGroup(dbc dbctx.Context, group *types.ContextGroup, memberIDs []uuid.UUID, links []*types.ArtifactLink) error {
	components := connectedComponents(memberIDs, links)
	if len(components) < 2 {
		m.log.Debug("Low-coherence group is fully connected, keeping it",
			"group_id", group.ID, "members", len(memberIDs), "coherence", group.CoherenceScore)
		return nil
	}

	m.log.Info("Splitting low-coherence group",
		"group_id", group.ID, "members", len(memberIDs), "coherence", group.CoherenceScore,
		"components", len(components))

	if err := m.deleteGroup(dbc, group.ID); err != nil {
		return err
	}

	for _, component := range components {
		if len(component) < 2 {
			continue
		}
		first, err := m.artifacts.GetByIDs(dbc, component[:1])
		if err != nil {
			return fmt.Errorf("split seed load: %w", err)
		}
		name := group.Name
		if len(first) > 0 {
			name = truncateName(first[0].Title)
		}
		newGroup := &types.ContextGroup{
			ID:             uuid.New(),
			TenantID:       group.TenantID,
			Name:           name,
			CoherenceScore: 1.0,
			Topics:         datatypes.JSON([]byte(`[]`)),
			Status:         types.GroupStatusActive,
		}
		if err := m.groups.Create(dbc, newGroup); err != nil {
			return fmt.Errorf("split group create: %w", err)
		}
		rows := make([]*types.ContextGroupMember, 0, len(component))
		for _, id := range component {
			rows = append(rows, &types.ContextGroupMember{
				ID: uuid.New(), GroupID: newGroup.ID, ArtifactID: id, Weight: 1.0,
			})
		}
		if err := m.members.CreateIgnoreDuplicates(dbc, rows); err != nil {
			return fmt.Errorf("split member create: %w", err)
		}
		if _, err := m.refreshMetadata(dbc, newGroup, component); err != nil {
			return err
		}
	}
	return nil
}

func (m *Maintainer) deleteGroup(dbc dbctx.Context, groupID uuid.UUID) error {
	if err := m.members.DeleteByGroupIDs(dbc, []uuid.UUID{groupID}); err != nil {
		return fmt.Errorf("group member delete: %w", err)
	}
	if err := m.groups.DeleteByIDs(dbc, []uuid.UUID{groupID}); err != nil {
		return fmt.Errorf("group delete: %w", err)
	}
	if err := m.graph.RemoveGroup(dbc.Ctx, groupID); err != nil {
		m.log.Warn("Graph group removal failed", "group_id", groupID, "error", err)
	}
	return nil
}

func (m *Maintainer) groupTopics(dbc dbctx.Context, memberIDs []uuid.UUID) (datatypes.JSON, error) {
	rows, err := m.artifacts.GetByIDs(dbc, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("topic artifact load: %w", err)
	}
	texts := make([]string, 0, len(rows)*2)
	for _, row := range rows {
		texts = append(texts, row.Title, row.Body)
	}
	topics := ExtractTopics(texts, m.cfg.TopicCount)
	raw, err := json.Marshal(topics)
	if err != nil {
		raw = []byte(`[]`)
	}
	return datatypes.JSON(raw), nil
}

func groupCoherence(memberCount int, links []*types.ArtifactLink) float64 {
	var sum float64
	for _, l := range links {
		sum += l.ConfidenceScore
	}
	avg := 0.0
	if len(links) > 0 {
		avg = sum / float64(len(links))
	}
	return CoherenceScore(memberCount, len(links), avg)
}

// connectedComponents walks the member list once in its stored order, growing
// a component by breadth-first traversal from each not-yet-visited member.
func connectedComponents(memberIDs []uuid.UUID, links []*types.ArtifactLink) [][]uuid.UUID {
	adjacency := make(map[uuid.UUID][]uuid.UUID, len(memberIDs))
	inGroup := make(map[uuid.UUID]bool, len(memberIDs))
	for _, id := range memberIDs {
		inGroup[id] = true
	}
	for _, l := range links {
		if !inGroup[l.SourceID] || !inGroup[l.TargetID] {
			continue
		}
		adjacency[l.SourceID] = append(adjacency[l.SourceID], l.TargetID)
		adjacency[l.TargetID] = append(adjacency[l.TargetID], l.SourceID)
	}

	visited := make(map[uuid.UUID]bool, len(memberIDs))
	var components [][]uuid.UUID
	for _, start := range memberIDs {
		if visited[start] {
			continue
		}
		var component []uuid.UUID
		queue := []uuid.UUID{start}
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			component = append(component, cur)
			for _, next := range adjacency[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

func truncateName(title string) string {
	if title == "" {
		return "Untitled context"
	}
	runes := []rune(title)
	if len(runes) <= groupNameMaxLen {
		return title
	}
	return string(runes[:groupNameMaxLen])
}
