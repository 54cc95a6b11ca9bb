/*
Package storagemodels holds the configuration a storage is opened from.

Credentials name a storage type and carry one section per backend. They load
from YAML:

	type: sqlite
	sqlite:
	  path: /var/lib/app/people.db

or from the environment, optionally seeded from a .env file:

	APP_TYPE=valkey
	APP_VALKEY_ADDRESSES=localhost:6379
	APP_VALKEY_PREFIX=app:

	creds, err := storagemodels.CredentialsFromEnv("APP_")

Both paths validate the section the storage type reads and report missing
settings as configuration errors.
*/
package storagemodels
