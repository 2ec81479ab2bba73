package merge

import "github.com/cinefeed/cinefeed/internal/catalog"

type episodeKey struct {
	originSrc  string
	serverName string
}

// MergeEpisodes unions incoming episode groups into existing, keyed by
// (origin source, server name). Within a group only server-data entries with
// unseen slugs are appended, whether the group is matched or new, so the
// union is idempotent, slugs stay unique per group, and sources never
// clobber one another's groups.
func MergeEpisodes(existing, incoming []catalog.Episode) []catalog.Episode {
	out := make([]catalog.Episode, len(existing))
	index := make(map[episodeKey]int, len(existing))
	for i, ep := range existing {
		out[i] = ep
		out[i].ServerData = append([]catalog.EpisodeServerData(nil), ep.ServerData...)
		index[episodeKey{ep.OriginSrc, ep.ServerName}] = i
	}

	for _, ep := range incoming {
		key := episodeKey{ep.OriginSrc, ep.ServerName}
		i, ok := index[key]
		if !ok {
			appended := ep
			appended.ServerData = nil
			out = append(out, appended)
			i = len(out) - 1
			index[key] = i
		}
		seen := make(map[string]struct{}, len(out[i].ServerData))
		for _, sd := range out[i].ServerData {
			seen[sd.Slug] = struct{}{}
		}
		for _, sd := range ep.ServerData {
			if _, dup := seen[sd.Slug]; dup {
				continue
			}
			seen[sd.Slug] = struct{}{}
			out[i].ServerData = append(out[i].ServerData, sd)
		}
	}
	return out
}
