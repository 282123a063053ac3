package config

// DefaultHostsPath is the location of the system hosts file.
const DefaultHostsPath = `C:\Windows\System32\drivers\etc\hosts`
