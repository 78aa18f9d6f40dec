package domain

import (
	"github.com/threadline-hq/threadline-backend/internal/domain/artifacts"
	"github.com/threadline-hq/threadline-backend/internal/domain/groups"
	"github.com/threadline-hq/threadline-backend/internal/domain/jobs"
)

type Artifact = artifacts.Artifact
type ArtifactLink = artifacts.ArtifactLink
type ShadowEvaluation = artifacts.ShadowEvaluation

type ContextGroup = groups.ContextGroup
type ContextGroupMember = groups.ContextGroupMember

type DiscoveryRun = jobs.DiscoveryRun

const (
	RelationshipWeakContextual   = artifacts.RelationshipWeakContextual
	RelationshipStrongContextual = artifacts.RelationshipStrongContextual
	RelationshipExplicit         = artifacts.RelationshipExplicit

	MethodDeterministic = artifacts.MethodDeterministic
	MethodMLAssisted    = artifacts.MethodMLAssisted
	MethodManual        = artifacts.MethodManual

	GroupStatusActive = groups.GroupStatusActive

	RunStatusPending   = jobs.RunStatusPending
	RunStatusRunning   = jobs.RunStatusRunning
	RunStatusSucceeded = jobs.RunStatusSucceeded
	RunStatusFailed    = jobs.RunStatusFailed
)
