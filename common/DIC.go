package DIC

const MASTER = "master"

// ClearData 清空底层数组,用于擦除密钥等敏感数据
func ClearData(slices ...[]byte) {
	for _, s := range slices {
		for i := range s {
			s[i] = 0
		}
	}
}

