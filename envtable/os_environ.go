// SPDX-License-Identifier: Apache-2.0

package envtable

import "os"

func osEnviron() []string {
	return os.Environ()
}
