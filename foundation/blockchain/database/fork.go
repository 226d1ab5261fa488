package database

import "fmt"

// ChooseChain applies the fork choice rule between the local and remote
// sequences. When both are valid the longer one wins and ties favor local.
// When only one is valid it wins. When neither is valid ErrNoValidChain is
// returned and no sequence is chosen.
func ChooseChain(rules Rules, local []Block, remote []Block) ([]Block, error) {
	remoteWins, err := RemoteWins(rules, local, remote)
	if err != nil {
		return nil, err
	}

	if remoteWins {
		return remote, nil
	}
	return local, nil
}

// RemoteWins reports if fork choice selects the remote sequence over the
// local one. It fails the same way ChooseChain does.
func RemoteWins(rules Rules, local []Block, remote []Block) (bool, error) {
	localErr := rules.ValidateChain(local)
	remoteErr := rules.ValidateChain(remote)

	switch {
	case localErr == nil && remoteErr == nil:
		return len(remote) > len(local), nil

	case localErr == nil:
		return false, nil

	case remoteErr == nil:
		return true, nil
	}

	return false, fmt.Errorf("%w: local: %s: remote: %s", ErrNoValidChain, localErr, remoteErr)
}
