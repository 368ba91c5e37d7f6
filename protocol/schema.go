package protocol

import (
	"github.com/invopop/jsonschema"
)

// Schemas returns a JSON schema per message type, keyed by the envelope "t" value.
func Schemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	out := map[string]*jsonschema.Schema{
		MsgJoin:        reflector.Reflect(&JoinMsg{}),
		MsgMove:        reflector.Reflect(&MoveMsg{}),
		MsgAim:         reflector.Reflect(&AimMsg{}),
		MsgFire:        reflector.Reflect(&FireMsg{}),
		MsgWelcome:     reflector.Reflect(&WelcomeMsg{}),
		MsgMap:         reflector.Reflect(&MapSnapshot{}),
		MsgPlayers:     reflector.Reflect(PlayersSnapshot{}),
		MsgProjectiles: reflector.Reflect(ProjectilesSnapshot{}),
		MsgEnemies:     reflector.Reflect(EnemiesSnapshot{}),
		MsgHit:         reflector.Reflect(&HitEffect{}),
	}
	for t, s := range out {
		s.Title = t
	}
	return out
}
